package main

// General API documentation for swaggo.
//
// @title           llmctl API
// @version         1.0
// @description     Local control plane for a single LLM inference engine.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
//
// @securityDefinitions.apikey	ApiKeyAuth
// @in							header
// @name						X-API-Key
