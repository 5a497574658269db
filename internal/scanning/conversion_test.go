package scanning

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("preparePNG", func() {
	It("should pass PNG data through unchanged", func() {
		data := tinyPNG()
		out, err := preparePNG(data, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})

	It("should convert JPEG to PNG", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil)).To(Succeed())

		out, err := preparePNG(buf.Bytes(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		_, err = png.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should sniff the type when none is given", func() {
		data := tinyPNG()
		out, err := preparePNG(data, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})

	It("should reject unknown formats", func() {
		_, err := preparePNG([]byte("definitely not an image"), "image/jpeg")
		Expect(err).To(MatchError(ErrUnsupportedFormat))
	})
})

var _ = Describe("isHEIC", func() {
	It("should detect the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEIC(data, "application/octet-stream")).To(BeTrue())
	})

	It("should detect the MIME type", func() {
		Expect(isHEIC(nil, "image/heif")).To(BeTrue())
	})

	It("should ignore other files", func() {
		Expect(isHEIC(tinyPNG(), "image/png")).To(BeFalse())
	})
})

var _ = Describe("normalizeMIME", func() {
	It("should drop parameters and lower-case", func() {
		Expect(normalizeMIME(" Image/PNG; charset=binary", nil)).To(Equal("image/png"))
	})
})
