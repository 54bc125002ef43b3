package radio

type HzBand struct {
	Center uint64 `json:"center_hz"`
	Width  uint64 `json:"width_hz"`
}

func (hzb HzBand) Begin() uint64 { return hzb.Center - hzb.Width/2 }
func (hzb HzBand) End() uint64   { return hzb.Center + hzb.Width/2 }

func (hzb HzBand) Overlaps(hz2 HzBand) bool {
	return !(hz2.End() < hzb.Begin() || hz2.Begin() > hzb.End())
}

func (hzb HzBand) Contains(hz uint64) bool {
	return hz >= hzb.Begin() && hz <= hzb.End()
}

// Offset is the baseband offset of hz from the band center.
func (hzb HzBand) Offset(hz uint64) int64 { return int64(hz) - int64(hzb.Center) }
