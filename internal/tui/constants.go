package tui

const (
	// Input Dimensions
	InputWidth = 60

	// Layout Offsets and Padding
	ProgressBarWidthOffset = 6
	DefaultPaddingX        = 1
	DefaultPaddingY        = 0

	// Units
	Megabyte = 1024.0 * 1024.0

	// Channel Buffers
	EventChannelBuffer = 100
)
