package internal

// Version is the fictionflow release version.
const Version = "0.3.0"
