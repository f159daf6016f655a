// Package h264 parses H.264 SPS NAL units to recover picture
// dimensions. Grounded on original_source's BitReader/read_ue/read_se
// and parse_sps_resolution (src/main.rs), reworked into Go's
// ok-bool idiom in place of Rust's Option<T>.
package h264

// highProfileIDCs lists profile_idc values whose SPS carries the
// extended chroma/bit-depth/scaling-list fields before the dimension
// fields, per spec.md §4.E.
var highProfileIDCs = map[uint32]bool{
	44: true, 83: true, 86: true, 100: true, 110: true, 118: true,
	122: true, 128: true, 134: true, 135: true, 138: true, 139: true, 244: true,
}

// bitReader reads individual bits and Exp-Golomb codes from a byte
// slice, MSB first within each byte.
type bitReader struct {
	data       []byte
	byteOffset int
	bitOffset  uint8
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (r *bitReader) readBit() (uint8, bool) {
	if r.byteOffset >= len(r.data) {
		return 0, false
	}
	bit := (r.data[r.byteOffset] >> (7 - r.bitOffset)) & 1
	r.bitOffset++
	if r.bitOffset == 8 {
		r.bitOffset = 0
		r.byteOffset++
	}
	return bit, true
}

func (r *bitReader) readBits(n uint8) (uint32, bool) {
	var result uint32
	for i := uint8(0); i < n; i++ {
		bit, ok := r.readBit()
		if !ok {
			return 0, false
		}
		result = (result << 1) | uint32(bit)
	}
	return result, true
}

// readUE reads an Exp-Golomb-coded unsigned integer.
func (r *bitReader) readUE() (uint32, bool) {
	var leadingZeros uint8
	for {
		bit, ok := r.readBit()
		if !ok {
			return 0, false
		}
		if bit != 0 {
			break
		}
		leadingZeros++
		if leadingZeros > 31 {
			return 0, false
		}
	}
	if leadingZeros == 0 {
		return 0, true
	}
	suffix, ok := r.readBits(leadingZeros)
	if !ok {
		return 0, false
	}
	return (uint32(1)<<leadingZeros - 1) + suffix, true
}

// readSE reads an Exp-Golomb-coded signed integer.
func (r *bitReader) readSE() (int32, bool) {
	ue, ok := r.readUE()
	if !ok {
		return 0, false
	}
	value := int32((ue + 1) / 2)
	if ue%2 == 0 {
		return -value, true
	}
	return value, true
}

// Resolution is the picture geometry recovered from an SPS.
type Resolution struct {
	Width  int
	Height int
}

// ParseSPSResolution decodes spsData (NAL header included, no start
// code) and returns the picture width/height, applying the High-profile
// extension fields and frame-cropping adjustment from spec.md §4.E.
// Truncated or malformed input yields ok=false rather than an error —
// callers retain the previous resolution, per spec.md §7.
func ParseSPSResolution(spsData []byte) (Resolution, bool) {
	if len(spsData) < 4 {
		return Resolution{}, false
	}

	r := newBitReader(spsData)

	if _, ok := r.readBits(8); !ok { // NAL header
		return Resolution{}, false
	}

	profileIDC, ok := r.readBits(8)
	if !ok {
		return Resolution{}, false
	}
	if _, ok := r.readBits(8); !ok { // constraint flags
		return Resolution{}, false
	}
	if _, ok := r.readBits(8); !ok { // level_idc
		return Resolution{}, false
	}
	if _, ok := r.readUE(); !ok { // seq_parameter_set_id
		return Resolution{}, false
	}

	if highProfileIDCs[profileIDC] {
		chromaFormatIDC, ok := r.readUE()
		if !ok {
			return Resolution{}, false
		}
		if chromaFormatIDC == 3 {
			if _, ok := r.readBits(1); !ok { // separate_colour_plane_flag
				return Resolution{}, false
			}
		}
		if _, ok := r.readUE(); !ok { // bit_depth_luma_minus8
			return Resolution{}, false
		}
		if _, ok := r.readUE(); !ok { // bit_depth_chroma_minus8
			return Resolution{}, false
		}
		if _, ok := r.readBits(1); !ok { // qpprime_y_zero_transform_bypass_flag
			return Resolution{}, false
		}
		scalingMatrixPresent, ok := r.readBits(1)
		if !ok {
			return Resolution{}, false
		}
		if scalingMatrixPresent == 1 {
			count := 8
			if chromaFormatIDC == 3 {
				count = 12
			}
			for i := 0; i < count; i++ {
				present, ok := r.readBits(1)
				if !ok {
					return Resolution{}, false
				}
				if present != 1 {
					continue
				}
				size := 16
				if i >= 6 {
					size = 64
				}
				if !skipScalingList(r, size) {
					return Resolution{}, false
				}
			}
		}
	}

	if _, ok := r.readUE(); !ok { // log2_max_frame_num_minus4
		return Resolution{}, false
	}

	picOrderCntType, ok := r.readUE()
	if !ok {
		return Resolution{}, false
	}
	switch picOrderCntType {
	case 0:
		if _, ok := r.readUE(); !ok { // log2_max_pic_order_cnt_lsb_minus4
			return Resolution{}, false
		}
	case 1:
		if _, ok := r.readBits(1); !ok { // delta_pic_order_always_zero_flag
			return Resolution{}, false
		}
		if _, ok := r.readSE(); !ok { // offset_for_non_ref_pic
			return Resolution{}, false
		}
		if _, ok := r.readSE(); !ok { // offset_for_top_to_bottom_field
			return Resolution{}, false
		}
		numRefFrames, ok := r.readUE()
		if !ok {
			return Resolution{}, false
		}
		for i := uint32(0); i < numRefFrames; i++ {
			if _, ok := r.readSE(); !ok {
				return Resolution{}, false
			}
		}
	}

	if _, ok := r.readUE(); !ok { // max_num_ref_frames
		return Resolution{}, false
	}
	if _, ok := r.readBits(1); !ok { // gaps_in_frame_num_value_allowed_flag
		return Resolution{}, false
	}

	picWidthInMbsMinus1, ok := r.readUE()
	if !ok {
		return Resolution{}, false
	}
	picHeightInMapUnitsMinus1, ok := r.readUE()
	if !ok {
		return Resolution{}, false
	}
	frameMbsOnlyFlag, ok := r.readBits(1)
	if !ok {
		return Resolution{}, false
	}

	width := (picWidthInMbsMinus1 + 1) * 16
	height := (picHeightInMapUnitsMinus1 + 1) * 16 * (2 - frameMbsOnlyFlag)

	if frameMbsOnlyFlag == 0 {
		if _, ok := r.readBits(1); !ok { // mb_adaptive_frame_field_flag
			return Resolution{}, false
		}
	}
	if _, ok := r.readBits(1); !ok { // direct_8x8_inference_flag
		return Resolution{}, false
	}

	cropFlag, ok := r.readBits(1)
	if !ok {
		return Resolution{}, false
	}
	var cropLeft, cropRight, cropTop, cropBottom uint32
	if cropFlag == 1 {
		var ok1, ok2, ok3, ok4 bool
		cropLeft, ok1 = r.readUE()
		cropRight, ok2 = r.readUE()
		cropTop, ok3 = r.readUE()
		cropBottom, ok4 = r.readUE()
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return Resolution{}, false
		}
		cropLeft *= 2
		cropRight *= 2
		cropTop *= 2
		cropBottom *= 2
	}

	finalWidth := int(width) - int(cropLeft) - int(cropRight)
	finalHeight := int(height) - int(cropTop) - int(cropBottom)
	if finalWidth <= 0 || finalHeight <= 0 {
		return Resolution{}, false
	}

	return Resolution{Width: finalWidth, Height: finalHeight}, true
}

// skipScalingList consumes one scaling-list's delta_scale entries
// without retaining them; only the bit position matters to the
// dimension fields that follow.
func skipScalingList(r *bitReader, size int) bool {
	lastScale := int32(8)
	nextScale := int32(8)
	for i := 0; i < size; i++ {
		if nextScale != 0 {
			deltaScale, ok := r.readSE()
			if !ok {
				return false
			}
			nextScale = (lastScale + deltaScale + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return true
}
