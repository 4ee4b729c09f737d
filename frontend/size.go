package frontend

const (
	DEFAULT_WIDTH  = 512
	DEFAULT_HEIGHT = 256
)
