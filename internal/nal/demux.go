// Package nal demultiplexes an Annex-B H.264 elementary stream into
// individual NAL units. Grounded on the teacher's
// service/streaming.go (readNextAnnexBFrame/readUntilStartCode) and
// original_source's scrcpy/video.rs (VideoStreamReader::read_frame),
// but simplified to the single-NAL-at-a-time contract spec.md §4.D
// names rather than the teacher's multi-NAL frame bundling.
package nal

import (
	"bufio"
	"io"

	"github.com/scrcpyhost/scrcpy-host/internal/hosterr"
)

// Kind classifies a NAL unit for the session-state/broadcast layer.
type Kind int

const (
	Video Kind = iota
	Config
)

const maxBufferBytes = 10 << 20 // 10 MiB pathological-input guard.

// Unit is one demultiplexed NAL unit, start code stripped.
type Unit struct {
	Type Kind
	Data []byte
}

// IsKeyframe reports whether u's H.264 NAL type is 5 (IDR), 7 (SPS) or
// 8 (PPS) — the triple a client needs observed before it can decode.
func (u Unit) IsKeyframe() bool {
	if len(u.Data) == 0 {
		return false
	}
	t := u.Data[0] & 0x1F
	return t == 5 || t == 7 || t == 8
}

// NALType returns the raw H.264 nal_unit_type field of u.
func (u Unit) NALType() int {
	if len(u.Data) == 0 {
		return -1
	}
	return int(u.Data[0] & 0x1F)
}

func kindForType(nalType int) Kind {
	if nalType == 7 || nalType == 8 {
		return Config
	}
	return Video
}

// Demultiplexer reads NAL units one at a time from an Annex-B stream
// that is preceded by exactly one dummy byte. It is not restartable;
// reconnection must allocate a new instance, per spec.md §4.D.
type Demultiplexer struct {
	br    *bufio.Reader
	atEOF bool
}

// New wraps r, reading and discarding the single leading dummy byte
// before returning. The caller is responsible for closing r.
func New(r io.Reader) (*Demultiplexer, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	if _, err := br.ReadByte(); err != nil {
		return nil, hosterr.Wrap(hosterr.KindVideoStream, err, "failed to read leading dummy byte")
	}
	return &Demultiplexer{br: br}, nil
}

// Next returns the next NAL unit, or io.EOF when the stream ends
// cleanly. Any other read failure is returned wrapped as
// hosterr.KindVideoStream.
func (d *Demultiplexer) Next() (Unit, error) {
	if d.atEOF {
		return Unit{}, io.EOF
	}

	for {
		found, err := d.advanceToStartCode()
		if err != nil {
			return Unit{}, err
		}
		if !found {
			d.atEOF = true
			return Unit{}, io.EOF
		}

		nalData, err := d.readUntilNextStartCode()
		if err != nil && err != io.EOF {
			return Unit{}, hosterr.Wrap(hosterr.KindVideoStream, err, "failed reading NAL body")
		}
		if err == io.EOF {
			d.atEOF = true
		}
		if len(nalData) == 0 {
			if d.atEOF {
				return Unit{}, io.EOF
			}
			continue
		}

		nalType := int(nalData[0] & 0x1F)
		return Unit{Type: kindForType(nalType), Data: nalData}, nil
	}
}

// advanceToStartCode discards bytes until it has consumed a 3-byte
// 00 00 01 start code (the 4-byte 00 00 00 01 form is handled
// transparently: its leading 00 is absorbed as trailing garbage and
// the trailing 00 00 01 matches directly, per spec.md §4.D).
func (d *Demultiplexer) advanceToStartCode() (bool, error) {
	for {
		peek, err := d.br.Peek(3)
		if len(peek) < 3 {
			if err == io.EOF {
				return false, nil
			}
			if err != nil {
				return false, hosterr.Wrap(hosterr.KindVideoStream, err, "failed scanning for start code")
			}
			return false, nil
		}

		if peek[0] == 0x00 && peek[1] == 0x00 && peek[2] == 0x01 {
			if _, err := d.br.Discard(3); err != nil {
				return false, hosterr.Wrap(hosterr.KindVideoStream, err, "failed discarding start code")
			}
			return true, nil
		}

		if _, err := d.br.ReadByte(); err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, hosterr.Wrap(hosterr.KindVideoStream, err, "failed skipping garbage byte")
		}
	}
}

// readUntilNextStartCode accumulates bytes until the next 00 00 01
// start code (exclusive), leaving that start code unconsumed so it
// begins the following NAL.
func (d *Demultiplexer) readUntilNextStartCode() ([]byte, error) {
	var data []byte
	for {
		peek, _ := d.br.Peek(3)
		if len(peek) >= 3 && peek[0] == 0x00 && peek[1] == 0x00 && peek[2] == 0x01 {
			return data, nil
		}

		b, err := d.br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return data, io.EOF
			}
			return data, err
		}
		data = append(data, b)

		if len(data) > maxBufferBytes {
			return nil, hosterr.New(hosterr.KindVideoStream, "NAL unit exceeded 10 MiB without a terminating start code")
		}
	}
}
