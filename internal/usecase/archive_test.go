package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/argus/internal/adapter/compressor"
)

type fakeStorage struct {
	failFor   string
	existing  []string
	listErr   error
	deleteErr error
	uploaded  []string
	deleted   []string
}

func (f *fakeStorage) Upload(ctx context.Context, localPath, remoteName string) error {
	if f.failFor != "" && strings.HasPrefix(remoteName, f.failFor+"-") {
		return fmt.Errorf("upload rejected")
	}
	f.uploaded = append(f.uploaded, remoteName)
	return nil
}

func (f *fakeStorage) List(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append(append([]string{}, f.existing...), f.uploaded...), nil
}

func (f *fakeStorage) Delete(ctx context.Context, remoteName string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, remoteName)
	return nil
}

func TestArchivePipeline(t *testing.T) {
	Convey("Given a unit root with vhost directories", t, func() {
		ctx := context.Background()

		root, err := os.MkdirTemp("", "archive_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(root)

		for _, unit := range []string{"healthcheck", "siteA", "siteB"} {
			So(os.MkdirAll(filepath.Join(root, unit), 0755), ShouldBeNil)
			So(os.WriteFile(filepath.Join(root, unit, "index.html"), []byte(unit), 0644), ShouldBeNil)
		}
		So(os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644), ShouldBeNil)

		log := &recordingLogger{}
		comp := compressor.NewGzip()

		Convey("DiscoverUnits", func() {
			p := NewArchivePipeline(root, []string{"healthcheck"}, nil, comp, 0, log)

			units, err := p.DiscoverUnits()

			Convey("It should list directories minus the exclusion set", func() {
				So(err, ShouldBeNil)
				So(units, ShouldResemble, []string{"siteA", "siteB"})
			})
		})

		Convey("Run with all uploads succeeding", func() {
			store := &fakeStorage{}
			targets := []UploadTarget{{Name: "s3", Storage: store}}
			p := NewArchivePipeline(root, []string{"healthcheck"}, targets, comp, 0, log)

			outcomes := p.Run(ctx)

			Convey("Every unit should succeed", func() {
				So(outcomes, ShouldHaveLength, 2)
				for _, o := range outcomes {
					So(o.OK, ShouldBeTrue)
				}
			})

			Convey("Uploads should carry unit and timestamp in the name", func() {
				So(store.uploaded, ShouldHaveLength, 2)
				So(store.uploaded[0], ShouldStartWith, "siteA-")
				So(store.uploaded[0], ShouldEndWith, ".tar.gz")
			})
		})

		Convey("Run when one unit's upload fails", func() {
			store := &fakeStorage{failFor: "siteA"}
			targets := []UploadTarget{{Name: "s3", Storage: store}}
			p := NewArchivePipeline(root, []string{"healthcheck"}, targets, comp, 0, log)

			outcomes := p.Run(ctx)

			Convey("The failing unit should not block the other", func() {
				So(outcomes, ShouldHaveLength, 2)
				So(outcomes[0].Unit, ShouldEqual, "siteA")
				So(outcomes[0].OK, ShouldBeFalse)
				So(outcomes[1].Unit, ShouldEqual, "siteB")
				So(outcomes[1].OK, ShouldBeTrue)
			})

			Convey("siteB's archive should still have been uploaded", func() {
				So(store.uploaded, ShouldHaveLength, 1)
				So(store.uploaded[0], ShouldStartWith, "siteB-")
			})

			Convey("The failure should be logged", func() {
				So(log.contains("Upload to s3 failed"), ShouldBeTrue)
			})
		})

		Convey("Run when a second target also receives uploads", func() {
			primary := &fakeStorage{}
			secondary := &fakeStorage{failFor: "siteB"}
			targets := []UploadTarget{
				{Name: "s3", Storage: primary},
				{Name: "gdrive", Storage: secondary},
			}
			p := NewArchivePipeline(root, []string{"healthcheck"}, targets, comp, 0, log)

			outcomes := p.Run(ctx)

			Convey("A unit fails if any target rejected it", func() {
				So(outcomes[0].Unit, ShouldEqual, "siteA")
				So(outcomes[0].OK, ShouldBeTrue)
				So(outcomes[1].Unit, ShouldEqual, "siteB")
				So(outcomes[1].OK, ShouldBeFalse)
			})

			Convey("The primary still holds both archives", func() {
				So(primary.uploaded, ShouldHaveLength, 2)
			})
		})

		Convey("Run when the unit root is unreadable", func() {
			p := NewArchivePipeline(filepath.Join(root, "ghost"), nil, nil, comp, 0, log)

			outcomes := p.Run(ctx)

			Convey("It should yield a single failed archive outcome", func() {
				So(outcomes, ShouldHaveLength, 1)
				So(outcomes[0].Unit, ShouldEqual, "archive")
				So(outcomes[0].OK, ShouldBeFalse)
			})
		})

		Convey("Run should leave no temp archives behind", func() {
			store := &fakeStorage{}
			targets := []UploadTarget{{Name: "s3", Storage: store}}
			p := NewArchivePipeline(root, []string{"healthcheck"}, targets, comp, 0, log)

			p.Run(ctx)

			leftovers, err := filepath.Glob(filepath.Join(os.TempDir(), "argus-archive-*.tar.gz"))
			So(err, ShouldBeNil)
			So(leftovers, ShouldBeEmpty)
		})

		Convey("Run with retention enabled", func() {
			stale := "siteGone-20200101_030000.tar.gz"
			undated := "MANIFEST"

			Convey("After a clean pass it should prune dated archives past the cutoff", func() {
				store := &fakeStorage{existing: []string{stale, undated}}
				targets := []UploadTarget{{Name: "s3", Storage: store}}
				p := NewArchivePipeline(root, []string{"healthcheck"}, targets, comp, 60, log)

				outcomes := p.Run(ctx)

				for _, o := range outcomes {
					So(o.OK, ShouldBeTrue)
				}
				So(store.deleted, ShouldResemble, []string{stale})
				So(log.contains("Pruned old archive "+stale+" from s3"), ShouldBeTrue)
			})

			Convey("Fresh uploads from the same pass should survive", func() {
				store := &fakeStorage{existing: []string{stale}}
				targets := []UploadTarget{{Name: "s3", Storage: store}}
				p := NewArchivePipeline(root, []string{"healthcheck"}, targets, comp, 60, log)

				p.Run(ctx)

				So(store.deleted, ShouldResemble, []string{stale})
				So(store.uploaded, ShouldHaveLength, 2)
			})

			Convey("A failed unit should skip remote pruning entirely", func() {
				store := &fakeStorage{failFor: "siteA", existing: []string{stale}}
				targets := []UploadTarget{{Name: "s3", Storage: store}}
				p := NewArchivePipeline(root, []string{"healthcheck"}, targets, comp, 60, log)

				p.Run(ctx)

				So(store.deleted, ShouldBeEmpty)
				So(log.contains("Skipping archive retention"), ShouldBeTrue)
			})

			Convey("A listing failure on one target should not stop the other", func() {
				broken := &fakeStorage{listErr: fmt.Errorf("denied")}
				healthy := &fakeStorage{existing: []string{stale}}
				targets := []UploadTarget{
					{Name: "s3", Storage: broken},
					{Name: "gdrive", Storage: healthy},
				}
				p := NewArchivePipeline(root, []string{"healthcheck"}, targets, comp, 60, log)

				p.Run(ctx)

				So(log.contains("Archive retention listing failed for s3"), ShouldBeTrue)
				So(healthy.deleted, ShouldResemble, []string{stale})
			})

			Convey("A delete failure should be logged, not fatal", func() {
				store := &fakeStorage{existing: []string{stale}, deleteErr: fmt.Errorf("forbidden")}
				targets := []UploadTarget{{Name: "s3", Storage: store}}
				p := NewArchivePipeline(root, []string{"healthcheck"}, targets, comp, 60, log)

				outcomes := p.Run(ctx)

				for _, o := range outcomes {
					So(o.OK, ShouldBeTrue)
				}
				So(log.contains("Failed to prune old archive"), ShouldBeTrue)
			})
		})
	})
}
