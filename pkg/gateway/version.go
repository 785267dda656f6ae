package gateway

// Version is overridden at build time.
var Version = "dev"
