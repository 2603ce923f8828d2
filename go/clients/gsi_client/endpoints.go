package gsi_client

const (
	// Base URL of the local integration server
	DefaultBaseURL = "http://localhost:3000"

	// API Endpoints
	GameStateEndpoint = "/gamestate"

	// Headers
	AcceptHeader = "Accept"
	JSONMimeType = "application/json"
)
