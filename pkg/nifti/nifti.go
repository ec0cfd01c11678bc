// Package nifti reads and writes single-file NIfTI-1 volumes (.nii and
// .nii.gz). Only the parts of the header needed to locate and decode voxel
// data are interpreted; the rest is carried verbatim as opaque metadata so
// derived volumes keep the source's affine and orientation.
package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"edgeuncertainty/internal/models"
)

// ErrDecode marks a source file that could not be decoded as a NIfTI-1 volume.
var ErrDecode = errors.New("nifti decode failure")

const (
	headerSize    = 348
	minDataOffset = headerSize + 4
	maxDims       = 7

	offDim       = 40
	offDatatype  = 70
	offBitpix    = 72
	offPixdim    = 76
	offVoxOffset = 108
	offSclSlope  = 112
	offSclInter  = 116
	offCalMax    = 124
	offCalMin    = 128
	offQformCode = 252
	offSformCode = 254
	offMagic     = 344
)

var magicSingle = []byte("n+1\x00")

// DataType is a NIfTI-1 voxel storage type.
type DataType int16

const (
	Uint8   DataType = 2
	Int16   DataType = 4
	Int32   DataType = 8
	Float32 DataType = 16
	Float64 DataType = 64
	Int8    DataType = 256
	Uint16  DataType = 512
	Uint32  DataType = 768
	Int64   DataType = 1024
	Uint64  DataType = 1280
)

// Size returns the byte width of one voxel, or 0 for unsupported types.
func (d DataType) Size() int {
	switch d {
	case Uint8, Int8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64, Int64, Uint64:
		return 8
	}
	return 0
}

func (d DataType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	}
	return fmt.Sprintf("datatype(%d)", int16(d))
}

// Read loads a volume from path, decompressing gzip input transparently.
func Read(path string) (*models.ProbabilityVolume, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vol, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vol, nil
}

// Decode parses an in-memory .nii or .nii.gz image. Scaling (scl_slope,
// scl_inter) is applied so the returned values match what the file encodes.
func Decode(raw []byte) (*models.ProbabilityVolume, error) {
	buf, err := maybeGunzip(raw)
	if err != nil {
		return nil, err
	}
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrDecode, len(buf))
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(buf) == headerSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(buf) == headerSize:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad sizeof_hdr", ErrDecode)
	}

	if !bytes.Equal(buf[offMagic:offMagic+4], magicSingle) {
		return nil, fmt.Errorf("%w: magic %q is not a single-file NIfTI-1 image", ErrDecode, buf[offMagic:offMagic+3])
	}

	ndim := int(int16(order.Uint16(buf[offDim:])))
	if ndim < 1 || ndim > maxDims {
		return nil, fmt.Errorf("%w: dim[0]=%d", ErrDecode, ndim)
	}
	dims := make([]int, ndim)
	for i := range dims {
		dims[i] = int(int16(order.Uint16(buf[offDim+2*(i+1):])))
		if dims[i] < 1 {
			return nil, fmt.Errorf("%w: dim[%d]=%d", ErrDecode, i+1, dims[i])
		}
	}

	dt := DataType(int16(order.Uint16(buf[offDatatype:])))
	size := dt.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: unsupported %s", ErrDecode, dt)
	}

	voxOffset := float64(math.Float32frombits(order.Uint32(buf[offVoxOffset:])))
	if math.IsNaN(voxOffset) || voxOffset > float64(len(buf)) {
		return nil, fmt.Errorf("%w: vox_offset %g beyond %d bytes", ErrDecode, voxOffset, len(buf))
	}
	offset := int(voxOffset)
	if offset < minDataOffset {
		offset = minDataOffset
	}

	// the count is bounded by the available bytes so it cannot overflow
	avail := (len(buf) - offset) / size
	n := 1
	for i, d := range dims {
		if d > avail/n {
			return nil, fmt.Errorf("%w: dim[%d]=%d needs more voxel data than the %d bytes present", ErrDecode, i+1, d, len(buf)-offset)
		}
		n *= d
	}
	end := offset + n*size

	data := make([]float64, n)
	decodeVoxels(data, buf[offset:end], dt, order)

	slope := float64(math.Float32frombits(order.Uint32(buf[offSclSlope:])))
	inter := float64(math.Float32frombits(order.Uint32(buf[offSclInter:])))
	if slope != 0 && !math.IsNaN(slope) && !(slope == 1 && inter == 0) {
		for i, v := range data {
			data[i] = v*slope + inter
		}
	}

	meta := models.Metadata{
		Raw:        append([]byte(nil), buf[:headerSize]...),
		Extensions: append([]byte(nil), buf[headerSize:offset]...),
		BigEndian:  order == binary.BigEndian,
	}
	return models.NewProbabilityVolume(data, dims, meta)
}

func maybeGunzip(raw []byte) ([]byte, error) {
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		return raw, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return out, nil
}

func decodeVoxels(dst []float64, src []byte, dt DataType, order binary.ByteOrder) {
	size := dt.Size()
	for i := range dst {
		b := src[i*size:]
		switch dt {
		case Uint8:
			dst[i] = float64(b[0])
		case Int8:
			dst[i] = float64(int8(b[0]))
		case Int16:
			dst[i] = float64(int16(order.Uint16(b)))
		case Uint16:
			dst[i] = float64(order.Uint16(b))
		case Int32:
			dst[i] = float64(int32(order.Uint32(b)))
		case Uint32:
			dst[i] = float64(order.Uint32(b))
		case Float32:
			dst[i] = float64(math.Float32frombits(order.Uint32(b)))
		case Float64:
			dst[i] = math.Float64frombits(order.Uint64(b))
		case Int64:
			dst[i] = float64(int64(order.Uint64(b)))
		case Uint64:
			dst[i] = float64(order.Uint64(b))
		}
	}
}

// Write stores data under path with the given storage type. The header is
// taken from meta when present so spatial fields survive; dims, datatype,
// scaling and calibration range are rewritten. A ".gz" suffix compresses
// the output.
func Write(path string, meta models.Metadata, dims []int, dt DataType, data []float64) error {
	encoded, err := Encode(meta, dims, dt, data)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(f)
		if _, err := zw.Write(encoded); err != nil {
			zw.Close()
			f.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	if _, err := f.Write(encoded); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode builds an uncompressed single-file image.
func Encode(meta models.Metadata, dims []int, dt DataType, data []float64) ([]byte, error) {
	if len(dims) < 1 || len(dims) > maxDims {
		return nil, fmt.Errorf("cannot encode %d dimensions", len(dims))
	}
	if n := models.VoxelCount(dims); n != len(data) {
		return nil, fmt.Errorf("%w: dims %v describe %d voxels, data has %d", models.ErrShape, dims, n, len(data))
	}
	size := dt.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported %s", dt)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if meta.BigEndian {
		order = binary.BigEndian
	}

	hdr := make([]byte, headerSize)
	if len(meta.Raw) >= headerSize {
		copy(hdr, meta.Raw[:headerSize])
	} else {
		defaultHeader(hdr, order)
	}

	ext := meta.Extensions
	if len(ext) < 4 {
		ext = make([]byte, 4)
	}
	offset := headerSize + len(ext)

	order.PutUint32(hdr[0:], headerSize)
	order.PutUint16(hdr[offDim:], uint16(len(dims)))
	for i := 1; i <= maxDims; i++ {
		d := 1
		if i <= len(dims) {
			d = dims[i-1]
		}
		order.PutUint16(hdr[offDim+2*i:], uint16(d))
	}
	order.PutUint16(hdr[offDatatype:], uint16(dt))
	order.PutUint16(hdr[offBitpix:], uint16(size*8))
	order.PutUint32(hdr[offVoxOffset:], math.Float32bits(float32(offset)))
	order.PutUint32(hdr[offSclSlope:], math.Float32bits(1))
	order.PutUint32(hdr[offSclInter:], math.Float32bits(0))

	var lo, hi float64
	for i, v := range data {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	order.PutUint32(hdr[offCalMin:], math.Float32bits(float32(lo)))
	order.PutUint32(hdr[offCalMax:], math.Float32bits(float32(hi)))
	copy(hdr[offMagic:], magicSingle)

	out := make([]byte, offset+len(data)*size)
	copy(out, hdr)
	copy(out[headerSize:], ext)
	encodeVoxels(out[offset:], data, dt, order)
	return out, nil
}

// defaultHeader fills an identity-spaced header for volumes without a source.
func defaultHeader(hdr []byte, order binary.ByteOrder) {
	for i := 0; i < 8; i++ {
		order.PutUint32(hdr[offPixdim+4*i:], math.Float32bits(1))
	}
	order.PutUint16(hdr[offQformCode:], 0)
	order.PutUint16(hdr[offSformCode:], 0)
}

func encodeVoxels(dst []byte, src []float64, dt DataType, order binary.ByteOrder) {
	size := dt.Size()
	for i, v := range src {
		b := dst[i*size:]
		switch dt {
		case Uint8:
			b[0] = uint8(clampRound(v, 0, math.MaxUint8))
		case Int8:
			b[0] = uint8(int8(clampRound(v, math.MinInt8, math.MaxInt8)))
		case Int16:
			order.PutUint16(b, uint16(int16(clampRound(v, math.MinInt16, math.MaxInt16))))
		case Uint16:
			order.PutUint16(b, uint16(clampRound(v, 0, math.MaxUint16)))
		case Int32:
			order.PutUint32(b, uint32(int32(clampRound(v, math.MinInt32, math.MaxInt32))))
		case Uint32:
			order.PutUint32(b, uint32(clampRound(v, 0, math.MaxUint32)))
		case Float32:
			order.PutUint32(b, math.Float32bits(float32(v)))
		case Float64:
			order.PutUint64(b, math.Float64bits(v))
		case Int64:
			order.PutUint64(b, uint64(int64(clampRound(v, math.MinInt64, math.MaxInt64))))
		case Uint64:
			order.PutUint64(b, uint64(clampRound(v, 0, math.MaxUint64)))
		}
	}
}

func clampRound(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, math.Round(v)))
}
