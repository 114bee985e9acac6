// Package config provides configuration loading for the dashboard
// core.
//
// It uses Viper to load configuration from config.yml files and
// environment variables, with .env support through godotenv. Services
// embed ServiceConfig and extend it with their own sections.
//
// # Usage
//
//	var cfg dashboard.Config
//	err := config.LoadConfig("zofia", &cfg)
//
// Environment variables override file values, e.g. SERVER_HOST binds
// to the server.host key.
package config
