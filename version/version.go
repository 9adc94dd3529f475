// Package version checks for newer releases and compares version strings.
package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/anisan-cli/anidl/filesystem"
	"github.com/anisan-cli/anidl/network"
	"github.com/anisan-cli/anidl/where"
	"github.com/metafates/gache"
)

// releasesURL is the GitHub API endpoint of the latest release.
const releasesURL = "https://api.github.com/repos/anisan-cli/anidl/releases/latest"

var versionCacher = gache.New[string](&gache.Options{
	Path:       filepath.Join(where.Cache(), "version.json"),
	Lifetime:   time.Hour * 24 * 2,
	FileSystem: &filesystem.GacheFs{},
})

// Latest returns the version of the latest release, without the leading "v".
// The answer is cached for two days.
func Latest(ctx context.Context) (string, error) {
	if cached, expired, err := versionCacher.Get(); err == nil && !expired && cached != "" {
		return cached, nil
	}

	client := network.New(network.Options{Attempts: 1, HeaderTimeout: 5 * time.Second})
	data, err := client.GetBytes(ctx, releasesURL, map[string]string{"Accept": "application/vnd.github+json"})
	if err != nil {
		return "", err
	}

	version, err := parseRelease(data)
	if err != nil {
		return "", err
	}

	_ = versionCacher.Set(version)
	return version, nil
}

func parseRelease(data []byte) (string, error) {
	var release struct {
		TagName string `json:"tag_name"`
	}

	if err := json.Unmarshal(data, &release); err != nil {
		return "", fmt.Errorf("decode release: %w", err)
	}

	if release.TagName == "" {
		return "", errors.New("empty tag name")
	}

	return strings.TrimPrefix(release.TagName, "v"), nil
}
