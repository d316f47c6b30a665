package memory_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rizkipratama/tierdocs/internal/accesscode"
	"github.com/rizkipratama/tierdocs/internal/auth/memory"
)

func TestMemoryStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "MemoryStore Suite")
}

var _ = Describe("Store", func() {
	var (
		store *memory.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		store = memory.NewStore()
		ctx = context.Background()
	})

	Describe("ListByIssuer", func() {
		newCode := func(code string, issuerID int64, createdAt time.Time) *accesscode.AccessCode {
			return &accesscode.AccessCode{
				Code:            code,
				IssuerID:        issuerID,
				TargetTierLevel: 2,
				MaxUses:         1,
				ExpiresAt:       createdAt.Add(24 * time.Hour),
				CreatedAt:       createdAt,
			}
		}

		It("should return the issuer's codes newest first", func() {
			base := time.Now()
			Expect(store.Create(ctx, newCode("OLDEST01", 1, base.Add(-2*time.Hour)))).To(Succeed())
			Expect(store.Create(ctx, newCode("NEWEST01", 1, base))).To(Succeed())
			Expect(store.Create(ctx, newCode("MIDDLE01", 1, base.Add(-time.Hour)))).To(Succeed())
			Expect(store.Create(ctx, newCode("OTHERGUY", 2, base))).To(Succeed())

			codes, err := store.ListByIssuer(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(codes).To(HaveLen(3))
			Expect(codes[0].Code).To(Equal("NEWEST01"))
			Expect(codes[1].Code).To(Equal("MIDDLE01"))
			Expect(codes[2].Code).To(Equal("OLDEST01"))
		})

		It("should break creation-time ties by the most recent id", func() {
			at := time.Now()
			Expect(store.Create(ctx, newCode("FIRSTTIE", 1, at))).To(Succeed())
			Expect(store.Create(ctx, newCode("LATERTIE", 1, at))).To(Succeed())

			codes, err := store.ListByIssuer(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(codes).To(HaveLen(2))
			Expect(codes[0].Code).To(Equal("LATERTIE"))
			Expect(codes[1].Code).To(Equal("FIRSTTIE"))
		})
	})
})
