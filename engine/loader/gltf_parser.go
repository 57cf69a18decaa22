package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errNoDocument         = errors.New("no document loaded")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir  string
	binChunk []byte
	document *gltfDocument
}

// gltfParser decodes a glTF or GLB document, resolves its buffers and reads float accessors.
type gltfParser interface {
	// Parse reads and decodes the file at path. Files ending in .glb or starting with
	// the GLB magic are read as GLB. External buffers resolve next to the file.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if reading or decoding fails
	Parse(path string) error

	// ParseReader decodes a document from r. External buffers resolve against the
	// working directory.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if decoding fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the decoded document, or nil before a successful parse.
	Document() *gltfDocument

	ReadScalarAccessor(accessorIndex int) ([]float32, error)
	ReadVec3Accessor(accessorIndex int) ([][3]float32, error)
	ReadVec4Accessor(accessorIndex int) ([][4]float32, error)
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	p.baseDir = filepath.Dir(path)

	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data) == gltfGLBMagic)
	return p.decode(data, isGLB)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	return p.decode(data, isGLB)
}

func (p *gltfParserImpl) decode(data []byte, isGLB bool) error {
	if isGLB {
		jsonData, bin, err := splitGLB(data)
		if err != nil {
			return err
		}
		data, p.binChunk = jsonData, bin
	}

	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	for i := range doc.Buffers {
		if err := p.resolveBuffer(i, &doc.Buffers[i]); err != nil {
			return fmt.Errorf("failed to load buffers: buffer %d: %w", i, err)
		}
	}
	p.document = &doc
	return nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container. The BIN chunk is optional.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func splitGLB(data []byte) (jsonData, bin []byte, err error) {
	r := bytes.NewReader(data)
	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	switch {
	case header.Magic != gltfGLBMagic:
		return nil, nil, errInvalidGLBMagic
	case header.Version != gltfGLBVersion:
		return nil, nil, errInvalidGLBVersion
	}

	for r.Len() > 0 {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			return nil, nil, fmt.Errorf("failed to read chunk header: %w", err)
		}
		if int64(chunk.ChunkLength) > int64(r.Len()) {
			return nil, nil, fmt.Errorf("chunk length %d exceeds remaining %d bytes", chunk.ChunkLength, r.Len())
		}
		body := make([]byte, chunk.ChunkLength)
		_, _ = r.Read(body)
		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = body
		case gltfGLBChunkBIN:
			bin = body
		}
	}
	if jsonData == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonData, bin, nil
}

// resolveBuffer fills buf.Data from a data URI, a file next to the document, or the
// GLB BIN chunk for a URI-less first buffer.
func (p *gltfParserImpl) resolveBuffer(i int, buf *gltfBuffer) error {
	var err error
	switch {
	case buf.URI == "" && i == 0 && p.binChunk != nil:
		buf.Data = p.binChunk
	case buf.URI == "":
		return errors.New("no URI and no GLB binary chunk")
	case strings.HasPrefix(buf.URI, "data:"):
		buf.Data, err = decodeDataURI(buf.URI)
	default:
		buf.Data, err = os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(buf.URI)))
		if err != nil {
			err = fmt.Errorf("failed to load buffer file %q: %w", buf.URI, err)
		}
	}
	if err != nil {
		return err
	}
	if len(buf.Data) < buf.ByteLength {
		return errBufferSizeMismatch
	}
	return nil
}

// decodeDataURI decodes data:[<mediatype>];base64,<data>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errInvalidBufferURI
	}
	if !strings.HasSuffix(header, ";base64") && header != "base64" {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

func (p *gltfParserImpl) ReadScalarAccessor(accessorIndex int) ([]float32, error) {
	return readFloatAccessor[float32](p, accessorIndex, gltfAccessorTypeScalar, 1)
}

func (p *gltfParserImpl) ReadVec3Accessor(accessorIndex int) ([][3]float32, error) {
	return readFloatAccessor[[3]float32](p, accessorIndex, gltfAccessorTypeVec3, 3)
}

func (p *gltfParserImpl) ReadVec4Accessor(accessorIndex int) ([][4]float32, error) {
	return readFloatAccessor[[4]float32](p, accessorIndex, gltfAccessorTypeVec4, 4)
}

// readFloatAccessor decodes a FLOAT accessor of the given type, honouring the buffer view's stride.
func readFloatAccessor[T float32 | [3]float32 | [4]float32](p *gltfParserImpl, accessorIndex int, accessorType string, components int) ([]T, error) {
	doc := p.document
	if doc == nil {
		return nil, errNoDocument
	}
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}
	acc := &doc.Accessors[accessorIndex]
	switch {
	case acc.Type != accessorType || acc.ComponentType != gltfComponentTypeFloat:
		return nil, fmt.Errorf("accessor is not %s FLOAT: type=%s, componentType=%d", accessorType, acc.Type, acc.ComponentType)
	case acc.Sparse != nil:
		return nil, errors.New("sparse accessors not yet supported")
	case acc.BufferView == nil:
		return nil, errors.New("accessor has no bufferView")
	case *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews):
		return nil, fmt.Errorf("bufferView index %d out of range", *acc.BufferView)
	}

	view := &doc.BufferViews[*acc.BufferView]
	if view.Buffer < 0 || view.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", view.Buffer)
	}
	src := doc.Buffers[view.Buffer].Data

	size := 4 * components
	stride := size
	if view.ByteStride != nil && *view.ByteStride > 0 {
		stride = *view.ByteStride
	}
	start := view.ByteOffset + acc.ByteOffset
	if acc.Count > 0 {
		if end := start + (acc.Count-1)*stride + size; end > len(src) {
			return nil, fmt.Errorf("accessor %d reads past buffer end (%d > %d)", accessorIndex, end, len(src))
		}
	}

	packed := make([]byte, 0, acc.Count*size)
	for i := 0; i < acc.Count; i++ {
		off := start + i*stride
		packed = append(packed, src[off:off+size]...)
	}
	out := make([]T, acc.Count)
	if err := binary.Read(bytes.NewReader(packed), binary.LittleEndian, out); err != nil {
		return nil, err
	}
	return out, nil
}
