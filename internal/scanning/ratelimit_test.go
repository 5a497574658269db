package scanning

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-ocr/internal/ocr"
)

// mockAssistedParser is a mock implementation of ocr.AssistedParser
type mockAssistedParser struct {
	calls    int
	deadline bool
}

func (m *mockAssistedParser) ParseText(ctx context.Context, text string) (*ocr.ParsedReceipt, error) {
	m.calls++
	_, m.deadline = ctx.Deadline()
	return &ocr.ParsedReceipt{Merchant: text}, nil
}

var _ = Describe("RateLimitedParser", func() {
	var next *mockAssistedParser

	BeforeEach(func() {
		next = &mockAssistedParser{}
	})

	It("should pass calls through within the burst", func() {
		p := NewRateLimitedParser(next, 0.001, 2)
		_, err := p.ParseText(context.Background(), "a")
		Expect(err).NotTo(HaveOccurred())
		_, err = p.ParseText(context.Background(), "b")
		Expect(err).NotTo(HaveOccurred())
		Expect(next.calls).To(Equal(2))
	})

	It("should reject calls over the limit without waiting", func() {
		p := NewRateLimitedParser(next, 0.001, 1)
		_, err := p.ParseText(context.Background(), "a")
		Expect(err).NotTo(HaveOccurred())
		_, err = p.ParseText(context.Background(), "b")
		Expect(err).To(MatchError(ErrRateLimited))
		Expect(next.calls).To(Equal(1))
	})

	It("should not limit when rps is zero", func() {
		p := NewRateLimitedParser(next, 0, 0)
		for i := 0; i < 10; i++ {
			_, err := p.ParseText(context.Background(), "a")
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(next.calls).To(Equal(10))
	})
})

var _ = Describe("WithTimeout", func() {
	It("should set a deadline on the call", func() {
		next := &mockAssistedParser{}
		receipt, err := WithTimeout(next, time.Second).ParseText(context.Background(), "Corner Shop")
		Expect(err).NotTo(HaveOccurred())
		Expect(receipt.Merchant).To(Equal("Corner Shop"))
		Expect(next.deadline).To(BeTrue())
	})

	It("should return the parser unchanged without a timeout", func() {
		next := &mockAssistedParser{}
		Expect(WithTimeout(next, 0)).To(BeIdenticalTo(next))
	})
})
