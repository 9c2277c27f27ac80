package paramstore

import (
	"context"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeStore struct {
	values map[string]string
	errs   map[string]error
}

func (f *fakeStore) Fetch(ctx context.Context, name string, decrypt bool) (string, error) {
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	value, ok := f.values[name]
	if !ok {
		return "", fmt.Errorf("parameter %s not found", name)
	}
	return value, nil
}

func TestResolver(t *testing.T) {
	Convey("Given a credential resolver", t, func() {
		ctx := context.Background()

		Convey("When the application key is complete", func() {
			store := &fakeStore{values: map[string]string{
				"/backup/application-key": `{"accessKeyId":"AKID","accessSecret":"shh"}`,
				"/backup/bucket-name":     "hosting-backups\n",
			}}
			r := NewResolver(store, "/backup/application-key", "/backup/bucket-name")

			Convey("Resolve should return the bundle", func() {
				bundle, err := r.Resolve(ctx)
				So(err, ShouldBeNil)
				So(bundle.AccessKeyID, ShouldEqual, "AKID")
				So(bundle.AccessSecret, ShouldEqual, "shh")
			})

			Convey("ResolveBucket should trim the bucket name", func() {
				bucket, err := r.ResolveBucket(ctx)
				So(err, ShouldBeNil)
				So(bucket.BucketName, ShouldEqual, "hosting-backups")
			})
		})

		Convey("When the key payload is not JSON", func() {
			store := &fakeStore{values: map[string]string{"/k": "not json"}}
			r := NewResolver(store, "/k", "/b")

			_, err := r.Resolve(ctx)

			Convey("Resolve should fail with a parse error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "not valid JSON")
			})
		})

		Convey("When a required field is empty", func() {
			store := &fakeStore{values: map[string]string{
				"/k": `{"accessKeyId":"AKID","accessSecret":""}`,
			}}
			r := NewResolver(store, "/k", "/b")

			_, err := r.Resolve(ctx)

			Convey("Resolve should refuse the bundle", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "missing accessKeyId or accessSecret")
			})
		})

		Convey("When the fetch itself fails", func() {
			store := &fakeStore{errs: map[string]error{"/k": fmt.Errorf("throttled")}}
			r := NewResolver(store, "/k", "/b")

			_, err := r.Resolve(ctx)

			Convey("Resolve should wrap the fetch error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "application key")
				So(err.Error(), ShouldContainSubstring, "throttled")
			})
		})

		Convey("When the bucket parameter is blank", func() {
			store := &fakeStore{values: map[string]string{"/b": "   "}}
			r := NewResolver(store, "/k", "/b")

			_, err := r.ResolveBucket(ctx)

			Convey("ResolveBucket should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "empty")
			})
		})

		Convey("The two resolutions should fail independently", func() {
			store := &fakeStore{values: map[string]string{
				"/b": "hosting-backups",
			}}
			r := NewResolver(store, "/k", "/b")

			_, credErr := r.Resolve(ctx)
			bucket, bucketErr := r.ResolveBucket(ctx)

			So(credErr, ShouldNotBeNil)
			So(bucketErr, ShouldBeNil)
			So(bucket.BucketName, ShouldEqual, "hosting-backups")
		})
	})
}
