package main

// General API documentation for swaggo. Regenerate internal/httpapi/docs with
// `swag init -g cmd/diffusiond/docs.go -o internal/httpapi/docs`.
//
// @title           diffusiond API
// @version         1.0
// @description     HTTP API for text-to-image generation through a diffusion runtime.
//
// @contact.name   diffusiond maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
