//go:build nocodec

package freedv

type nocodec struct{}

// New returns a codec that fails every Open. Builds tagged nocodec do not
// link libcodec2.
func New() Codec { return nocodec{} }

func (nocodec) Open(Mode) (Session, error) { return nil, ErrUnavailable }
