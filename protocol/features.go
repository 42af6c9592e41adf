package protocol

// Feature contains feature bits that describe a virtio-video device.
type Feature uint64

// Device-independent feature bits.
//
// Source: https://docs.oasis-open.org/virtio/virtio/v1.3/csd01/virtio-v1.3-csd01.html#x1-6600006
const (
	// FeatureVersion1 indicates compliance with version 1.0 of the virtio
	// specification.
	FeatureVersion1 Feature = 1 << 32
)

// Feature bits for video devices.
const (
	// FeatureResourceGuestPages indicates that the device can use guest pages
	// as the backing memory of a resource.
	FeatureResourceGuestPages Feature = 1 << 0

	// FeatureResourceNonContig indicates that the device can use
	// non-contiguous guest memory for a single plane. Without it, a plane
	// must be backed by exactly one memory entry.
	FeatureResourceNonContig Feature = 1 << 1

	// FeatureResourceVirtioObject indicates that the device can use virtio
	// objects (e.g. exported dmabufs) as the backing memory of a resource.
	FeatureResourceVirtioObject Feature = 1 << 2
)

var featureNames = map[string]Feature{
	"version_1":              FeatureVersion1,
	"resource_guest_pages":   FeatureResourceGuestPages,
	"resource_non_contig":    FeatureResourceNonContig,
	"resource_virtio_object": FeatureResourceVirtioObject,
}

// Has reports whether all bits of f2 are set in f.
func (f Feature) Has(f2 Feature) bool {
	return f&f2 == f2
}

// ParseFeatures turns config names into a feature set. Unknown names are
// returned separately so the caller can decide how loud to be about them.
func ParseFeatures(names []string) (f Feature, unknown []string) {
	for _, n := range names {
		bit, ok := featureNames[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		f |= bit
	}
	return f, unknown
}
