// Parley is a streaming chat relay in front of the DeepSeek completion API.
//
// It keeps one conversation transcript per browser session, forwards each
// user message upstream with the full history and streams the reply back
// as it arrives. The client commits the assembled reply once it has been
// rendered.
//
// Usage:
//
//	# Start the relay from environment variables only
//	DEEPSEEK_REAL_KEY=sk-... parley run
//
//	# Start with a configuration file
//	parley run --config /etc/parley/config.yaml
//
//	# Check that the upstream answers
//	parley ping
//
//	# Delete idle transcripts once
//	parley prune --older-than 48h
//
//	# Show version information
//	parley version
package main

func main() {
	Execute()
}
