// Package image is the wire form of compiled images: a canonical CBOR
// document carrying the string pool and the sections of a vm.Image.
package image

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/jsos/vm"
)

// Magic identifies an encoded image.
const Magic = "jsos-image"

// Version is the wire format version written by Marshal.
const Version = 1

var (
	// ErrNotImage is returned when the data is not an encoded image.
	ErrNotImage = errors.New("not a jsos image")

	// ErrVersion is returned for images written by an unknown format version.
	ErrVersion = errors.New("unsupported image version")
)

type wireImage struct {
	Magic    string        `cbor:"1,keyasint"`
	Version  uint          `cbor:"2,keyasint"`
	Name     string        `cbor:"3,keyasint,omitempty"`
	Strings  []string      `cbor:"4,keyasint"`
	Sections []wireSection `cbor:"5,keyasint"`
}

type wireSection struct {
	Flags  uint32 `cbor:"1,keyasint"`
	Locals uint32 `cbor:"2,keyasint"`
	Code   []byte `cbor:"3,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// Marshal serializes img. Equal images encode to identical bytes.
func Marshal(img *vm.Image) ([]byte, error) {
	w := wireImage{
		Magic:    Magic,
		Version:  Version,
		Name:     img.Name,
		Strings:  img.Strings,
		Sections: make([]wireSection, len(img.Sections)),
	}
	if w.Strings == nil {
		w.Strings = []string{}
	}
	for i, s := range img.Sections {
		code := s.Code
		if code == nil {
			code = []byte{}
		}
		w.Sections[i] = wireSection{Flags: uint32(s.Flags), Locals: s.LocalCount, Code: code}
	}
	return encMode.Marshal(&w)
}

// Parse deserializes an image. The result has at least one section.
func Parse(data []byte) (*vm.Image, error) {
	var w wireImage
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if w.Magic != Magic {
		return nil, ErrNotImage
	}
	if w.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, w.Version)
	}
	if len(w.Sections) == 0 {
		return nil, fmt.Errorf("%w: image %q has no sections", ErrNotImage, w.Name)
	}
	img := &vm.Image{
		Name:     w.Name,
		Strings:  w.Strings,
		Sections: make([]vm.Section, len(w.Sections)),
	}
	for i, s := range w.Sections {
		img.Sections[i] = vm.Section{
			Flags:      vm.SectionFlags(s.Flags),
			LocalCount: s.Locals,
			Code:       s.Code,
		}
	}
	return img, nil
}
