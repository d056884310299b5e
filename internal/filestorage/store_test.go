// File: internal/filestorage/store_test.go
package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLocalStore(t *testing.T) (*LocalStore, string) {
	root := t.TempDir()
	store, err := NewLocalStore(root, zap.NewNop())
	require.NoError(t, err, "Failed to create LocalStore")
	return store, root
}

// newTestFileHeader builds a multipart.FileHeader the way gin would parse it.
func newTestFileHeader(t *testing.T, fieldname, filename, content, contentType string) *multipart.FileHeader {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldname, filename))
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)
	files := form.File[fieldname]
	require.NotEmpty(t, files, "No files found for fieldname %s", fieldname)
	return files[0]
}

func TestCleanKey(t *testing.T) {
	ok := map[string]string{
		"exports/a.csv":      "exports/a.csv",
		"/exports//a.csv":    "exports/a.csv",
		"exports/x/../a.csv": "exports/a.csv",
	}
	for in, want := range ok {
		got, err := CleanKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"", "  ", "..", "../etc/passwd", "a/../../b"} {
		_, err := CleanKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestLocalStore_SaveOpenDelete(t *testing.T) {
	store, root := setupLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "exports/customers.csv", strings.NewReader("a,b\n1,2\n"), "text/csv"))
	_, err := os.Stat(filepath.Join(root, "exports", "customers.csv"))
	require.NoError(t, err, "File should exist at the key path")

	rc, err := store.Open(ctx, "exports/customers.csv")
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))

	require.NoError(t, store.Delete(ctx, "exports/customers.csv"))
	_, err = store.Open(ctx, "exports/customers.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing file is not an error.
	assert.NoError(t, store.Delete(ctx, "exports/customers.csv"))
	assert.Error(t, store.Delete(ctx, "../outside.csv"))
}

func TestSaveUpload(t *testing.T) {
	store, root := setupLocalStore(t)
	ctx := context.Background()

	fh := newTestFileHeader(t, "file", "customers.CSV", "inspection_code\nIC-1\n", "text/csv")
	key, err := SaveUpload(ctx, store, fh, "imports/customers")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "imports/customers/"))
	assert.True(t, strings.HasSuffix(key, ".csv"))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "inspection_code\nIC-1\n", string(data))

	noExt := newTestFileHeader(t, "file", "upload", "x", "text/csv; charset=utf-8")
	key, err = SaveUpload(ctx, store, noExt, "imports")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".csv"))

	binary := newTestFileHeader(t, "file", "photo", "x", "image/png")
	_, err = SaveUpload(ctx, store, binary, "imports")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type or missing extension")
}

type MockS3API struct {
	mock.Mock
}

func (m *MockS3API) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	args := m.Called(aws.ToString(in.Bucket), aws.ToString(in.Key), string(body))
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *MockS3API) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(aws.ToString(in.Bucket), aws.ToString(in.Key))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(args.String(0)))}, args.Error(1)
}

func (m *MockS3API) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(aws.ToString(in.Bucket), aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func TestS3Store_UsesPrefixedKeys(t *testing.T) {
	client := new(MockS3API)
	store := NewS3StoreWithClient(client, "wasa-bucket", "/wasa-admin/", zap.NewNop())
	ctx := context.Background()

	client.On("PutObject", "wasa-bucket", "wasa-admin/exports/a.csv", "x,y\n").Return(nil).Once()
	require.NoError(t, store.Save(ctx, "exports/a.csv", strings.NewReader("x,y\n"), "text/csv"))

	client.On("GetObject", "wasa-bucket", "wasa-admin/exports/a.csv").Return("x,y\n", nil).Once()
	rc, err := store.Open(ctx, "exports/a.csv")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "x,y\n", string(data))

	client.On("GetObject", "wasa-bucket", "wasa-admin/missing.csv").Return(nil, errors.New("api error NoSuchKey: The specified key does not exist.")).Once()
	_, err = store.Open(ctx, "missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	client.On("DeleteObject", "wasa-bucket", "wasa-admin/exports/a.csv").Return(nil).Once()
	require.NoError(t, store.Delete(ctx, "exports/a.csv"))

	assert.Error(t, store.Save(ctx, "../escape.csv", strings.NewReader(""), "text/csv"))
	client.AssertExpectations(t)
}
