package types

import "math/bits"

type MinutiaType string

const (
	Ending      MinutiaType = "ending"
	Bifurcation MinutiaType = "bifurcation"
)

// Fixed grid sizes. Every template carries grids of exactly these shapes so
// two templates can always be compared cell by cell.
const (
	TextureGridSize = 8
	PatternGridSize = 4
	DescriptorSize  = 32
)

type Keypoint struct {
	X           float64 `bson:"x" json:"x" cbor:"1,keyasint"`
	Y           float64 `bson:"y" json:"y" cbor:"2,keyasint"`
	Scale       float64 `bson:"scale" json:"scale" cbor:"3,keyasint"`
	Orientation float64 `bson:"orientation" json:"orientation" cbor:"4,keyasint"`
	Strength    float64 `bson:"strength" json:"strength" cbor:"5,keyasint"`
}

// Descriptor is a 256 bit binary vector (ORB).
type Descriptor []byte

type Minutia struct {
	X         int         `bson:"x" json:"x" cbor:"1,keyasint"`
	Y         int         `bson:"y" json:"y" cbor:"2,keyasint"`
	Type      MinutiaType `bson:"type" json:"type" cbor:"3,keyasint"`
	Direction float64     `bson:"direction" json:"direction" cbor:"4,keyasint"` // degrees in [0,360)
}

type TextureCell struct {
	Mean   float64 `bson:"mean" json:"mean" cbor:"1,keyasint"`
	StdDev float64 `bson:"stdDev" json:"stdDev" cbor:"2,keyasint"`
}

type PatternCell struct {
	RidgeDensity  float64 `bson:"ridgeDensity" json:"ridgeDensity" cbor:"1,keyasint"`
	DominantAngle float64 `bson:"dominantAngle" json:"dominantAngle" cbor:"2,keyasint"` // radians in [0,π)
}

type TextureGrid [TextureGridSize][TextureGridSize]TextureCell

type PatternGrid [PatternGridSize][PatternGridSize]PatternCell

type TemplateQuality struct {
	Score         float64 `bson:"score" json:"score" cbor:"1,keyasint"` // 0..100
	Contrast      float64 `bson:"contrast" json:"contrast" cbor:"2,keyasint"`
	FeatureCount  float64 `bson:"featureCount" json:"featureCount" cbor:"3,keyasint"`
	MinutiaeCount float64 `bson:"minutiaeCount" json:"minutiaeCount" cbor:"4,keyasint"`
	Label         string  `bson:"label" json:"label" cbor:"5,keyasint"`
}

// Template is the comparable representation of one scan. It is never
// mutated after the assembler or the fuser returns it.
type Template struct {
	Keypoints      []Keypoint      `bson:"keypoints" json:"keypoints" cbor:"1,keyasint"`
	Descriptors    []Descriptor    `bson:"descriptors" json:"descriptors" cbor:"2,keyasint"`
	Minutiae       []Minutia       `bson:"minutiae" json:"minutiae" cbor:"3,keyasint"`
	Hash           BitString       `bson:"hash" json:"hash" cbor:"4,keyasint"`
	Texture        *TextureGrid    `bson:"texture" json:"texture,omitempty" cbor:"5,keyasint,omitempty"`
	Pattern        *PatternGrid    `bson:"pattern" json:"pattern,omitempty" cbor:"6,keyasint,omitempty"`
	Quality        TemplateQuality `bson:"quality" json:"quality" cbor:"7,keyasint"`
	Degraded       bool            `bson:"degraded" json:"degraded" cbor:"8,keyasint"`
	DegradedReason string          `bson:"degradedReason,omitempty" json:"degradedReason,omitempty" cbor:"9,keyasint,omitempty"`
	Width          int             `bson:"width" json:"width" cbor:"10,keyasint"`
	Height         int             `bson:"height" json:"height" cbor:"11,keyasint"`
	Strategy       string          `bson:"strategy" json:"strategy" cbor:"12,keyasint"`
}

func (t *Template) HasKeypoints() bool {
	return t != nil && len(t.Keypoints) > 0 && len(t.Descriptors) > 0
}

func (t *Template) HasMinutiae() bool {
	return t != nil && len(t.Minutiae) > 0
}

// QualityRatio is the template quality mapped to [0,1].
func (t *Template) QualityRatio() float64 {
	if t == nil {
		return 0
	}
	return t.Quality.Score / 100
}

// BitString is a packed, fixed-length bit string. Bit i lives in
// Bits[i/8] at position 7-(i%8).
type BitString struct {
	Bits   []byte `bson:"bits" json:"bits" cbor:"1,keyasint"`
	Length int    `bson:"length" json:"length" cbor:"2,keyasint"`
}

func NewBitString(length int) BitString {
	return BitString{Bits: make([]byte, (length+7)/8), Length: length}
}

func (b BitString) Get(i int) bool {
	return b.Bits[i/8]&(1<<(7-uint(i%8))) != 0
}

func (b BitString) Set(i int, v bool) {
	if v {
		b.Bits[i/8] |= 1 << (7 - uint(i%8))
	} else {
		b.Bits[i/8] &^= 1 << (7 - uint(i%8))
	}
}

// AppendUint64 writes the n low-order bits of v starting at offset, most
// significant first.
func (b BitString) AppendUint64(offset int, v uint64, n int) {
	for i := 0; i < n; i++ {
		b.Set(offset+i, v&(1<<uint(n-1-i)) != 0)
	}
}

// HammingPrefix counts differing bits over the first n bits of both strings.
func HammingPrefix(a, b BitString, n int) int {
	full := n / 8
	diff := 0
	for i := 0; i < full; i++ {
		diff += bits.OnesCount8(a.Bits[i] ^ b.Bits[i])
	}
	for i := full * 8; i < n; i++ {
		if a.Get(i) != b.Get(i) {
			diff++
		}
	}
	return diff
}

// Binary is a single channel raster where 1 marks foreground (ridge).
type Binary struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewBinary(width, height int) *Binary {
	return &Binary{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

func (b *Binary) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return 0
	}
	return b.Pix[y*b.Width+x]
}

func (b *Binary) Set(x, y int, v uint8) {
	b.Pix[y*b.Width+x] = v
}

func (b *Binary) Count() int {
	n := 0
	for _, p := range b.Pix {
		if p != 0 {
			n++
		}
	}
	return n
}

func (b *Binary) Clone() *Binary {
	c := NewBinary(b.Width, b.Height)
	copy(c.Pix, b.Pix)
	return c
}

func (b *Binary) Invert() *Binary {
	c := NewBinary(b.Width, b.Height)
	for i, p := range b.Pix {
		if p == 0 {
			c.Pix[i] = 1
		}
	}
	return c
}

type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

type MatchState string

const (
	StateInit             MatchState = "init"
	StateFeatureExtracted MatchState = "feature_extracted"
	StateQualityChecked   MatchState = "quality_checked"
	StateScored           MatchState = "scored"
	StateAccepted         MatchState = "accepted"
	StateRejectedQuality  MatchState = "rejected_low_quality"
	StateRejectedScore    MatchState = "rejected_below_threshold"
)

type MatchResult struct {
	StaffID            string     `json:"staffId,omitempty"`
	Score              float64    `json:"score"`
	Matched            bool       `json:"matched"`
	Confidence         Confidence `json:"confidence"`
	TemplateIndex      int        `json:"templateIndex"`
	TemplateCount      int        `json:"templateCount"`
	BaseThreshold      float64    `json:"baseThreshold"`
	EffectiveThreshold float64    `json:"effectiveThreshold"`
	State              MatchState `json:"state"`
	FailedComparisons  int        `json:"failedComparisons,omitempty"`
}

type PopulationResult struct {
	Best              *MatchResult  `json:"best"`
	Candidates        []MatchResult `json:"candidates"`
	SubjectsCompared  int           `json:"subjectsCompared"`
	FailedComparisons int           `json:"failedComparisons"`
	Ambiguous         bool          `json:"ambiguous"`
}

// SimilarityBreakdown carries the per-signal sub scores behind a final score.
type SimilarityBreakdown struct {
	Hash        float64 `json:"hash"`
	Descriptors float64 `json:"descriptors"`
	Minutiae    float64 `json:"minutiae"`
	Texture     float64 `json:"texture"`
	Pattern     float64 `json:"pattern"`
	Raw         float64 `json:"raw"`
	Final       float64 `json:"final"`
	HashOnly    bool    `json:"hashOnly"`
}
