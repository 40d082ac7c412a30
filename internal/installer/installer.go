// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"

	"github.com/c1au6i0/condathis/internal/layout"
	"github.com/c1au6i0/condathis/internal/logging"
	"github.com/c1au6i0/condathis/pkg/platform"
)

const (
	// DefaultVersion is installed when a request names no version.
	DefaultVersion = "2.0.5-0"
	// LatestVersion resolves to the highest stable published release.
	LatestVersion = "latest"

	// ArtifactArchive and ArtifactRaw name the two release formats.
	ArtifactArchive = "tar.bz2"
	ArtifactRaw     = "raw"
)

var (
	// ErrInvalidVersion indicates the version is not a valid semantic version.
	ErrInvalidVersion = errors.New("invalid micromamba version")

	// ErrAssetNotFound indicates the release has no usable asset for this platform.
	ErrAssetNotFound = errors.New("no micromamba asset for this platform")
)

type (
	// InstallRequest selects what to install.
	InstallRequest struct {
		// Version is a release tag such as "2.0.5-0", "latest", or empty for
		// the installer's default.
		Version string
		// Force reinstalls even when a binary is already present.
		Force bool
		// Timeout bounds the whole install; zero means no extra bound.
		Timeout time.Duration
	}

	// InstallResult describes what Install did.
	InstallResult struct {
		// Skipped is true when a binary was already present.
		Skipped bool `json:"skipped"`
		// Version is the release tag installed.
		Version string `json:"version,omitempty"`
		// Path is the installed executable.
		Path string `json:"path"`
		// Artifact is ArtifactArchive or ArtifactRaw.
		Artifact string `json:"artifact,omitempty"`
		// Verified is true when a published checksum was checked.
		Verified bool `json:"verified"`
		// Duration is the wall time spent.
		Duration time.Duration `json:"duration"`
	}

	// Installer places a micromamba binary at a Layout's BinPath.
	Installer struct {
		layout         layout.Layout
		client         *ReleaseClient
		logger         *log.Logger
		defaultVersion string
		sysArch        func() (platform.Subdir, error)
	}

	// Option configures an Installer.
	Option func(*Installer)
)

// WithReleaseClient overrides the default release client.
func WithReleaseClient(c *ReleaseClient) Option {
	return func(i *Installer) {
		i.client = c
	}
}

// WithLogger sets the logger used for download and fallback decisions.
func WithLogger(l *log.Logger) Option {
	return func(i *Installer) {
		i.logger = l
	}
}

// WithDefaultVersion sets the version used when a request names none.
func WithDefaultVersion(v string) Option {
	return func(i *Installer) {
		if v != "" {
			i.defaultVersion = v
		}
	}
}

// WithSubdir pins the conda platform instead of detecting the host's.
func WithSubdir(s platform.Subdir) Option {
	return func(i *Installer) {
		i.sysArch = func() (platform.Subdir, error) { return s, nil }
	}
}

// New creates an Installer for l.
func New(l layout.Layout, opts ...Option) *Installer {
	i := &Installer{
		layout:         l,
		defaultVersion: DefaultVersion,
		sysArch:        platform.SysArch,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.client == nil {
		i.client = NewReleaseClient()
	}
	i.logger = logging.Component(i.logger, "installer")
	return i
}

// BinPath is where the binary is (or will be) installed.
func (i *Installer) BinPath() string {
	return i.layout.BinPath()
}

// Installed reports whether the binary is present.
func (i *Installer) Installed() bool {
	return i.layout.BinaryInstalled()
}

// Install ensures a micromamba binary exists at BinPath. Without Force an
// existing binary is left alone and no network request is made.
//
// The .tar.bz2 release asset is tried first; if it is missing or cannot be
// decompressed the raw executable asset is used instead. A published
// checksum that does not match aborts the install without falling back.
func (i *Installer) Install(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	start := time.Now()

	if !req.Force && i.Installed() {
		i.logger.Debug("micromamba already installed", "path", i.BinPath())
		return &InstallResult{Skipped: true, Path: i.BinPath()}, nil
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	subdir, err := i.sysArch()
	if err != nil {
		return nil, err
	}

	release, err := i.resolveRelease(ctx, req.Version)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(i.layout.BinDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", i.layout.BinDir(), err)
	}

	tmpBin, artifact, verified, err := i.fetch(ctx, release, subdir)
	if err != nil {
		return nil, err
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpBin)
		}
	}()

	if err := os.Chmod(tmpBin, 0o755); err != nil {
		return nil, fmt.Errorf("setting binary permissions: %w", err)
	}
	if err := os.Rename(tmpBin, i.BinPath()); err != nil {
		return nil, fmt.Errorf("installing binary: %w", err)
	}
	renamed = true

	res := &InstallResult{
		Version:  release.TagName,
		Path:     i.BinPath(),
		Artifact: artifact,
		Verified: verified,
		Duration: time.Since(start),
	}
	i.logger.Info("installed micromamba", "version", res.Version, "artifact", artifact, "path", res.Path)
	return res, nil
}

// resolveRelease maps a requested version to release metadata.
func (i *Installer) resolveRelease(ctx context.Context, version string) (*Release, error) {
	if version == "" {
		version = i.defaultVersion
	}

	if strings.EqualFold(version, LatestVersion) {
		releases, err := i.client.ListReleases(ctx)
		if err != nil {
			return nil, err
		}
		if len(releases) == 0 {
			return nil, fmt.Errorf("%w: no stable releases published", ErrReleaseNotFound)
		}
		i.logger.Debug("resolved latest release", "tag", releases[0].TagName)
		return &releases[0], nil
	}

	if _, err := normalizeVersion(version); err != nil {
		return nil, err
	}
	return i.client.GetReleaseByTag(ctx, strings.TrimPrefix(version, "v"))
}

// fetch downloads the best available asset and returns the path of a temp
// file holding the executable.
func (i *Installer) fetch(ctx context.Context, rel *Release, subdir platform.Subdir) (string, string, bool, error) {
	archiveName := ArchiveAssetName(subdir)
	if asset := findAsset(rel.Assets, archiveName); asset != nil {
		bin, verified, err := i.fetchArchive(ctx, rel, asset, subdir)
		switch {
		case err == nil:
			return bin, ArtifactArchive, verified, nil
		case !errors.Is(err, ErrExtractFailed):
			return "", "", false, err
		}
		i.logger.Warn("archive extraction failed, trying raw executable", "asset", archiveName, "err", err)
	} else {
		i.logger.Debug("archive asset not published, trying raw executable", "asset", archiveName)
	}

	rawName := RawAssetName(subdir)
	asset := findAsset(rel.Assets, rawName)
	if asset == nil {
		return "", "", false, fmt.Errorf("%w: release %s has neither %s nor %s", ErrAssetNotFound, rel.TagName, archiveName, rawName)
	}
	bin, err := i.download(ctx, asset)
	if err != nil {
		return "", "", false, err
	}
	verified, err := i.verify(ctx, rel, asset, bin)
	if err != nil {
		_ = os.Remove(bin)
		return "", "", false, err
	}
	return bin, ArtifactRaw, verified, nil
}

func (i *Installer) fetchArchive(ctx context.Context, rel *Release, asset *Asset, subdir platform.Subdir) (string, bool, error) {
	archive, err := i.download(ctx, asset)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = os.Remove(archive) }()

	verified, err := i.verify(ctx, rel, asset, archive)
	if err != nil {
		return "", false, err
	}

	bin, err := extractFromTarBz2(archive, binaryNameFor(subdir), i.layout.BinDir())
	if err != nil {
		return "", false, err
	}
	return bin, verified, nil
}

func (i *Installer) download(ctx context.Context, asset *Asset) (string, error) {
	i.logger.Debug("downloading", "asset", asset.Name, "bytes", asset.Size)
	body, err := i.client.DownloadAsset(ctx, asset.BrowserDownloadURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	return writeTemp(i.layout.BinDir(), "micromamba-download-*", body, nil)
}

// verify checks file against <asset>.sha256 when the release publishes one.
func (i *Installer) verify(ctx context.Context, rel *Release, asset *Asset, file string) (bool, error) {
	sumAsset := findAsset(rel.Assets, asset.Name+".sha256")
	if sumAsset == nil {
		i.logger.Debug("no checksum published", "asset", asset.Name)
		return false, nil
	}

	body, err := i.client.DownloadAsset(ctx, sumAsset.BrowserDownloadURL)
	if err != nil {
		return false, fmt.Errorf("downloading checksum: %w", err)
	}
	defer func() { _ = body.Close() }()

	expected, err := ParseChecksum(body, asset.Name)
	if err != nil {
		return false, err
	}
	if err := VerifyFile(file, expected, asset.Name); err != nil {
		return false, err
	}
	return true, nil
}

// ArchiveAssetName is the compressed release asset for subdir.
func ArchiveAssetName(subdir platform.Subdir) string {
	return "micromamba-" + string(subdir) + ".tar.bz2"
}

// RawAssetName is the uncompressed executable asset for subdir.
func RawAssetName(subdir platform.Subdir) string {
	return "micromamba-" + string(subdir)
}

func binaryNameFor(subdir platform.Subdir) string {
	if strings.HasPrefix(string(subdir), "win-") {
		return "micromamba.exe"
	}
	return "micromamba"
}

// normalizeVersion adds the "v" prefix semver requires and validates the result.
func normalizeVersion(v string) (string, error) {
	norm := canonicalTag(v)
	if !semver.IsValid(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return norm, nil
}
