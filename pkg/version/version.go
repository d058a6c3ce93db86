package version

const (
	// Version is the stratum release version.
	Version = "0.3.0"

	// ProtocolVersion is the MCP revision the server prefers.
	ProtocolVersion = "2025-06-18"
)

// SupportedProtocols lists the MCP revisions the server accepts, newest first.
var SupportedProtocols = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

// Negotiate resolves the protocol revision for a session. A requested revision
// the server supports is echoed back; anything else falls back to the server's
// preferred revision, per MCP version negotiation.
func Negotiate(requested string) string {
	for _, v := range SupportedProtocols {
		if v == requested {
			return v
		}
	}
	return ProtocolVersion
}
