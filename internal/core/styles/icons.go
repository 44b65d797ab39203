package styles

// Status icons for CLI output.
var (
	IconPass  = "✔"
	IconWarn  = "!"
	IconFail  = "✘"
	IconStale = "⟳"
	IconDot   = "•"
)
