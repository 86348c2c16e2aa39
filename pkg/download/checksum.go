package download

import (
	"bufio"
	"context"
	"crypto/sha1" //nolint:gosec
	_ "crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	pkgerrors "github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/opencontainers/go-digest"
	slogcontext "github.com/veqryn/slog-context"
)

// Checksum policies.
const (
	ChecksumIgnore = "ignore"
	ChecksumWarn   = "warn"
	ChecksumFail   = "fail"
)

// sidecarLimit bounds the size read from a checksum file.
const sidecarLimit = 4096

// verifySidecars checks path against the .sha256 file next to the source, or
// the .sha1 file when no .sha256 is published. A missing sidecar is not an
// error. A mismatch fails the attempt only under the fail policy.
func (m *ManagerImpl) verifySidecars(ctx context.Context, src Source, path, policy string) error {
	if policy == ChecksumIgnore || policy == "" {
		return nil
	}
	logger := slogcontext.FromCtx(ctx)

	err := m.verifySHA256Sidecar(ctx, src, path)
	if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
		err = m.verifySHA1Sidecar(ctx, src, path)
	}
	switch {
	case err == nil:
		return nil
	case pkgerrors.Is(err, pkgerrors.ErrNotFound):
		logger.Debug("no checksum published", "url", src.URL.Redacted())
		return nil
	case pkgerrors.Is(err, pkgerrors.ErrFileHashMismatch) && policy == ChecksumFail:
		return err
	default:
		logger.Warn("checksum verification failed", "url", src.URL.Redacted(), "error", err)
		return nil
	}
}

func (m *ManagerImpl) verifySHA256Sidecar(ctx context.Context, src Source, path string) error {
	want, err := m.readSidecar(ctx, src, ".sha256")
	if err != nil {
		return err
	}
	expected, err := digest.Parse(digest.SHA256.String() + ":" + want)
	if err != nil {
		return fmt.Errorf("malformed sha256 sidecar: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return pkgerrors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()
	verifier := expected.Verifier()
	if _, err := io.Copy(verifier, f); err != nil {
		return pkgerrors.Wrap(err, "hashing")
	}
	if !verifier.Verified() {
		return fmt.Errorf("sha256 mismatch for %s: %w", src.URL.Redacted(), pkgerrors.ErrFileHashMismatch)
	}
	return nil
}

func (m *ManagerImpl) verifySHA1Sidecar(ctx context.Context, src Source, path string) error {
	want, err := m.readSidecar(ctx, src, ".sha1")
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return pkgerrors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()
	h := sha1.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return pkgerrors.Wrap(err, "hashing")
	}
	if hex.EncodeToString(h.Sum(nil)) != want {
		return fmt.Errorf("sha1 mismatch for %s: %w", src.URL.Redacted(), pkgerrors.ErrFileHashMismatch)
	}
	return nil
}

// readSidecar returns the first token of the checksum file, lower-cased. Files
// written as "<hex>  <name>" are accepted.
func (m *ManagerImpl) readSidecar(ctx context.Context, src Source, suffix string) (string, error) {
	u, err := url.Parse(src.URL.String() + suffix)
	if err != nil {
		return "", err
	}
	body, err := m.open(ctx, src, u)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()
	sc := bufio.NewScanner(io.LimitReader(body, sidecarLimit))
	sc.Split(bufio.ScanWords)
	if !sc.Scan() {
		return "", fmt.Errorf("empty checksum file %s: %w", u.Redacted(), pkgerrors.ErrNotFound)
	}
	return normalizeHex(sc.Text()), nil
}

func verifySHA256(path string, wantHex string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, pkgerrors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()
	got, err := digest.SHA256.FromReader(f)
	if err != nil {
		return false, pkgerrors.Wrap(err, "hashing")
	}
	return got.Encoded() == normalizeHex(wantHex), nil
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
