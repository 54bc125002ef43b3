// Package store keeps decoded audio and waterfall captures on disk, one
// directory per channel frequency.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/chzchzchz/freedvrx/freedv"
)

const DefaultPattern = "%Y%m%d-%H%M%S"

type RecordingStore struct {
	baseDir string
	pattern string
}

// NewRecordingStore names files with the strftime pattern.
func NewRecordingStore(dir, pattern string) (*RecordingStore, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := strftime.Format(pattern, time.Now()); err != nil {
		return nil, fmt.Errorf("bad recording pattern %q: %w", pattern, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &RecordingStore{dir, pattern}, nil
}

func (rs *RecordingStore) channelDir(hz uint64) string {
	return filepath.Join(rs.baseDir, strconv.FormatUint(hz, 10))
}

func (rs *RecordingStore) path(hz uint64, m freedv.Mode, t time.Time, ext string) (string, error) {
	fdir := rs.channelDir(hz)
	if err := os.MkdirAll(fdir, 0755); err != nil {
		return "", err
	}
	stamp, err := strftime.Format(rs.pattern, t)
	if err != nil {
		return "", err
	}
	return filepath.Join(fdir, m.String()+"."+stamp+ext), nil
}

// AudioPath is where decoded speech for a channel starting at t goes.
func (rs *RecordingStore) AudioPath(hz uint64, m freedv.Mode, t time.Time) (string, error) {
	return rs.path(hz, m, t, ".wav")
}

func (rs *RecordingStore) WaterfallPath(hz uint64, m freedv.Mode, t time.Time) (string, error) {
	return rs.path(hz, m, t, ".jpg")
}

func (rs *RecordingStore) HasChannel(hz uint64) bool {
	_, err := os.Stat(rs.channelDir(hz))
	return err == nil
}

type Recording struct {
	ChannelHz uint64      `json:"channel_hz"`
	Mode      freedv.Mode `json:"mode"`
	Date      time.Time   `json:"date"`
	Path      string      `json:"path"`
	Size      int64       `json:"size"`
}

// Recordings lists audio files for channels within [loHz, hiHz], oldest
// first.
func (rs *RecordingStore) Recordings(loHz, hiHz uint64) (ret []Recording, err error) {
	dirs, err := os.ReadDir(rs.baseDir)
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		hz, err := strconv.ParseUint(d.Name(), 10, 64)
		if err != nil || !d.IsDir() || hz < loHz || hz > hiHz {
			continue
		}
		fdir := filepath.Join(rs.baseDir, d.Name())
		files, err := os.ReadDir(fdir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if !strings.HasSuffix(f.Name(), ".wav") {
				continue
			}
			modeName, _, ok := strings.Cut(f.Name(), ".")
			if !ok {
				continue
			}
			m, err := freedv.ParseMode(modeName)
			if err != nil {
				continue
			}
			fi, err := f.Info()
			if err != nil {
				continue
			}
			ret = append(ret, Recording{
				ChannelHz: hz,
				Mode:      m,
				Date:      fi.ModTime(),
				Path:      filepath.Join(fdir, f.Name()),
				Size:      fi.Size(),
			})
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Date.Before(ret[j].Date) })
	return ret, nil
}
