package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/argus/internal/domain"
)

type fakeLister struct {
	keys []string
	err  error
	got  string
}

func (f *fakeLister) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	f.got = prefix
	return f.keys, f.err
}

func TestLocator(t *testing.T) {
	Convey("Given a snapshot locator", t, func() {
		ctx := context.Background()
		day := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		Convey("Latest", func() {
			Convey("When the listing has several same-day snapshots", func() {
				lister := &fakeLister{keys: []string{
					"s3://x/2024-01-01T01",
					"s3://x/2024-01-01T02",
				}}
				l := NewLocator(lister, "s3://x/", "/mnt/snap", ".sentinel", "true", "true")

				id, err := l.Latest(ctx, day)

				Convey("It should pick the last entry in listing order", func() {
					So(err, ShouldBeNil)
					So(id, ShouldEqual, "s3://x/2024-01-01T02")
				})

				Convey("It should query with the marker plus the date", func() {
					So(lister.got, ShouldEqual, "s3://x/2024-01-01")
				})
			})

			Convey("When the listing is empty", func() {
				l := NewLocator(&fakeLister{}, "snap-", "/mnt/snap", ".sentinel", "true", "true")

				_, err := l.Latest(ctx, day)

				Convey("It should report that no snapshot exists", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "no snapshot found for snap-2024-01-01")
				})
			})

			Convey("When the listing fails", func() {
				l := NewLocator(&fakeLister{err: fmt.Errorf("denied")}, "snap-", "/mnt/snap", ".sentinel", "true", "true")

				_, err := l.Latest(ctx, day)

				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "denied")
			})
		})

		Convey("Mount and Unmount", func() {
			tempDir, err := os.MkdirTemp("", "locator_test")
			So(err, ShouldBeNil)
			defer os.RemoveAll(tempDir)

			mountPoint := filepath.Join(tempDir, "snap")

			Convey("When the sentinel is present after mounting", func() {
				So(os.MkdirAll(mountPoint, 0755), ShouldBeNil)
				So(os.WriteFile(filepath.Join(mountPoint, ".sentinel"), nil, 0644), ShouldBeNil)

				l := NewLocator(&fakeLister{}, "snap-", mountPoint, ".sentinel", "true", "true")

				snap, err := l.Mount(ctx, "snap-2024-01-01T02")

				Convey("Mount should validate and succeed", func() {
					So(err, ShouldBeNil)
					So(snap.ID, ShouldEqual, "snap-2024-01-01T02")
					So(snap.MountPoint, ShouldEqual, mountPoint)
				})

				Convey("Unmount should succeed and be repeatable", func() {
					So(l.Unmount(ctx, snap), ShouldBeNil)
					So(snap.Unmounted, ShouldBeTrue)
					So(l.Unmount(ctx, snap), ShouldBeNil)
				})
			})

			Convey("When the sentinel is missing", func() {
				l := NewLocator(&fakeLister{}, "snap-", mountPoint, ".sentinel", "true", "true")

				snap, err := l.Mount(ctx, "snap-2024-01-01T02")

				Convey("Mount should be a hard failure", func() {
					So(snap, ShouldBeNil)
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "sentinel")
				})
			})

			Convey("When the mount tool itself fails", func() {
				l := NewLocator(&fakeLister{}, "snap-", mountPoint, ".sentinel", "false", "true")

				snap, err := l.Mount(ctx, "snap-2024-01-01T02")

				So(snap, ShouldBeNil)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to mount")
			})

			Convey("Unmounting nothing should be a no-op", func() {
				l := NewLocator(&fakeLister{}, "snap-", mountPoint, ".sentinel", "true", "true")

				So(l.Unmount(ctx, nil), ShouldBeNil)
				So(l.Unmount(ctx, &domain.MountedSnapshot{Unmounted: true}), ShouldBeNil)
			})
		})
	})
}
