package styles

// Plain unicode glyphs; they render without a patched font.
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconPending = "…"
	IconArrow   = "→"
	IconBullet  = "▸"
	IconDot     = "●"
	IconDotOff  = "○"
)
