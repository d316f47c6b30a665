package document_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/document"
	"github.com/rizkipratama/tierdocs/internal/document/memory"
	"github.com/rizkipratama/tierdocs/internal/identity"
	"github.com/rizkipratama/tierdocs/internal/storage"
)

func TestDocumentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Document Service Suite")
}

// Mock user repository for testing
type mockUserRepository struct {
	users map[int64]*identity.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[int64]*identity.User)}
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	u, exists := m.users[id]
	if !exists {
		return nil, identity.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (m *mockUserRepository) GetSubordinates(ctx context.Context, parentUserID int64) ([]*identity.User, error) {
	return nil, nil
}

func (m *mockUserRepository) GetFromTier(ctx context.Context, tierLevel int) ([]*identity.User, error) {
	return nil, nil
}

func (m *mockUserRepository) Deactivate(ctx context.Context, id int64) error {
	u, exists := m.users[id]
	if !exists {
		return identity.ErrNotFound
	}
	u.IsActive = false
	return nil
}

var _ = Describe("DocumentService", func() {
	var (
		store   *memory.Store
		blobs   *storage.MemoryStore
		users   *mockUserRepository
		service *document.Service
		ctx     context.Context
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	addUser := func(id int64, tier int) *identity.User {
		u := &identity.User{ID: id, Username: "user", TierLevel: tier, IsActive: true}
		users.users[id] = u
		return u
	}

	upload := func(uploaderID int64, minTier int, content string) *document.Document {
		doc, err := service.Upload(ctx, uploaderID, document.UploadDTO{
			FileName:         "report.pdf",
			ContentType:      "application/pdf",
			MinimumTierLevel: minTier,
		}, strings.NewReader(content))
		Expect(err).NotTo(HaveOccurred())
		return doc
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = memory.NewStore()
		blobs = storage.NewMemoryStore()
		users = newMockUserRepository()
		service = document.NewService(store, store, users, blobs, testLogger)
	})

	Describe("Upload", func() {
		Context("when a tier 3 uploader gates at tier 3", func() {
			It("should store the blob and hash before the metadata", func() {
				addUser(1, 3)

				content := "quarterly numbers"
				doc := upload(1, 3, content)

				sum := sha256.Sum256([]byte(content))
				Expect(doc.FileHash).To(Equal(hex.EncodeToString(sum[:])))
				Expect(doc.FileSize).To(Equal(int64(len(content))))
				Expect(doc.IsActive).To(BeTrue())

				exists, err := blobs.Exists(ctx, doc.StorageKey)
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeTrue())
			})
		})

		Context("when the gate is looser than the uploader's own tier", func() {
			It("should reject", func() {
				addUser(1, 3)

				_, err := service.Upload(ctx, 1, document.UploadDTO{
					FileName:         "secret.pdf",
					MinimumTierLevel: 2,
				}, strings.NewReader("x"))
				Expect(err).To(MatchError(apperrors.ErrMinTierTooLoose))
			})
		})

		Context("when the metadata is invalid", func() {
			It("should reject an empty file name", func() {
				addUser(1, 3)

				_, err := service.Upload(ctx, 1, document.UploadDTO{
					MinimumTierLevel: 3,
				}, strings.NewReader("x"))
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when the uploader is inactive", func() {
			It("should reject", func() {
				u := addUser(1, 3)
				u.IsActive = false

				_, err := service.Upload(ctx, 1, document.UploadDTO{
					FileName:         "report.pdf",
					MinimumTierLevel: 3,
				}, strings.NewReader("x"))
				Expect(err).To(MatchError(apperrors.ErrUserInactive))
			})
		})
	})

	Describe("CanAccess", func() {
		It("should gate by tier ceiling", func() {
			addUser(1, 3)
			addUser(2, 5)
			addUser(3, 2)
			doc := upload(1, 3, "content")

			allowed, err := service.CanAccess(ctx, 2, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeFalse())

			allowed, err = service.CanAccess(ctx, 3, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeTrue())

			allowed, err = service.CanAccess(ctx, 1, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeTrue())
		})

		It("should answer false for missing users and documents", func() {
			addUser(1, 3)
			doc := upload(1, 3, "content")

			allowed, err := service.CanAccess(ctx, 99, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeFalse())

			allowed, err = service.CanAccess(ctx, 1, 404)
			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeFalse())
		})

		It("should answer false for a soft-deleted document regardless of tier", func() {
			addUser(1, 1)
			doc := upload(1, 3, "content")
			Expect(service.Delete(ctx, 1, doc.ID)).To(Succeed())

			allowed, err := service.CanAccess(ctx, 1, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeFalse())
		})
	})

	Describe("ListAccessible", func() {
		It("should return only documents the tier clears, newest first", func() {
			addUser(1, 1)
			addUser(2, 4)

			upload(1, 2, "for leadership")
			open := upload(1, 5, "for everyone")

			docs, err := service.ListAccessible(ctx, 2, document.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal(open.ID))

			docs, err = service.ListAccessible(ctx, 1, document.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
		})

		It("should exclude soft-deleted documents for every tier", func() {
			addUser(1, 1)
			doc := upload(1, 5, "content")
			Expect(service.Delete(ctx, 1, doc.ID)).To(Succeed())

			docs, err := service.ListAccessible(ctx, 1, document.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})
	})

	Describe("View", func() {
		It("should return metadata and append a view record", func() {
			addUser(1, 3)
			addUser(2, 2)
			doc := upload(1, 3, "content")

			viewed, err := service.View(ctx, 2, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(viewed.ID).To(Equal(doc.ID))

			trail, err := store.ListByDocument(ctx, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(trail).To(HaveLen(1))
			Expect(trail[0].UserID).To(Equal(int64(2)))
			Expect(trail[0].AccessType).To(Equal(document.AccessTypeView))
		})

		It("should reject a tier below the gate without recording anything", func() {
			addUser(1, 3)
			addUser(2, 5)
			doc := upload(1, 3, "content")

			_, err := service.View(ctx, 2, doc.ID)
			Expect(err).To(MatchError(apperrors.ErrDocumentForbidden))

			trail, err := store.ListByDocument(ctx, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(trail).To(BeEmpty())
		})

		It("should report a soft-deleted document as not found", func() {
			addUser(1, 1)
			doc := upload(1, 3, "content")
			Expect(service.Delete(ctx, 1, doc.ID)).To(Succeed())

			_, err := service.View(ctx, 1, doc.ID)
			Expect(err).To(MatchError(apperrors.ErrDocumentNotFound))
		})
	})

	Describe("Download", func() {
		It("should stream the stored bytes and append a download record", func() {
			addUser(1, 3)
			doc := upload(1, 3, "the actual bytes")

			result, err := service.Download(ctx, 1, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			defer result.Content.Close()

			data, err := io.ReadAll(result.Content)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("the actual bytes"))

			trail, err := store.ListByDocument(ctx, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(trail).To(HaveLen(1))
			Expect(trail[0].AccessType).To(Equal(document.AccessTypeDownload))
		})

		It("should surface a missing blob as a missing file error", func() {
			addUser(1, 3)
			doc := upload(1, 3, "content")
			Expect(blobs.Delete(ctx, doc.StorageKey)).To(Succeed())

			_, err := service.Download(ctx, 1, doc.ID)
			Expect(err).To(MatchError(apperrors.ErrFileMissing))
		})
	})

	Describe("Delete", func() {
		It("should soft-delete for the uploader", func() {
			addUser(1, 3)
			doc := upload(1, 3, "content")

			Expect(service.Delete(ctx, 1, doc.ID)).To(Succeed())

			// The record survives with the active flag cleared.
			stored, err := store.GetByID(ctx, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.IsActive).To(BeFalse())
		})

		It("should allow an actor whose tier clears the document's gate", func() {
			addUser(1, 3)
			addUser(2, 2)
			doc := upload(1, 3, "content")

			Expect(service.Delete(ctx, 2, doc.ID)).To(Succeed())
		})

		It("should reject an actor below the gate who is not the uploader", func() {
			addUser(1, 3)
			addUser(2, 4)
			doc := upload(1, 3, "content")

			err := service.Delete(ctx, 2, doc.ID)
			Expect(err).To(MatchError(apperrors.ErrDocumentForbidden))
		})

		It("should report an already-deleted document as not found", func() {
			addUser(1, 3)
			doc := upload(1, 3, "content")

			Expect(service.Delete(ctx, 1, doc.ID)).To(Succeed())
			Expect(service.Delete(ctx, 1, doc.ID)).To(MatchError(apperrors.ErrDocumentNotFound))
		})
	})

	Describe("Access history", func() {
		It("should serve a document's trail to the uploader", func() {
			addUser(1, 3)
			addUser(2, 2)
			doc := upload(1, 3, "content")

			_, err := service.View(ctx, 2, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Download(ctx, 2, doc.ID)
			Expect(err).NotTo(HaveOccurred())

			trail, err := service.AccessHistory(ctx, 1, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(trail).To(HaveLen(2))
		})

		It("should refuse the trail to a user below the gate", func() {
			addUser(1, 3)
			addUser(2, 5)
			doc := upload(1, 3, "content")

			_, err := service.AccessHistory(ctx, 2, doc.ID)
			Expect(err).To(MatchError(apperrors.ErrDocumentForbidden))
		})

		It("should list a user's own accesses across documents", func() {
			addUser(1, 3)
			first := upload(1, 3, "one")
			second := upload(1, 3, "two")

			_, err := service.View(ctx, 1, first.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.View(ctx, 1, second.ID)
			Expect(err).NotTo(HaveOccurred())

			mine, err := service.MyAccessHistory(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(2))
		})
	})
})
