package bundler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/evanw/esbuild/pkg/api"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// AssetPattern matches the files turned into asset descriptor modules.
const AssetPattern = `(?i)\.(bmp|gif|jpe?g|png|webp|svg|mp4|ttf|otf)$`

// AssetDir is the output directory asset artifacts are emitted under.
const AssetDir = "assets"

// Asset is the module an asset import evaluates to.
type Asset struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	URI      string `json:"uri"`
	Platform string `json:"platform"`
}

// DescribeAsset builds the descriptor for an asset file's contents.
// Dimensions are filled in for raster images that decode.
func DescribeAsset(path string, data []byte, platform string) Asset {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	hash := fmt.Sprintf("%016x", xxhash.Sum64(data))
	a := Asset{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Type:     ext,
		Hash:     hash,
		URI:      AssetDir + "/" + hash + "." + ext,
		Platform: platform,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		a.Width, a.Height = cfg.Width, cfg.Height
	}
	return a
}

// assetCollector gathers emitted asset artifacts during one build. esbuild
// may invoke load callbacks concurrently.
type assetCollector struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (c *assetCollector) add(name string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.files == nil {
		c.files = make(map[string][]byte)
	}
	c.files[name] = data
}

func assetPlugin(platform string, collector *assetCollector) api.Plugin {
	return api.Plugin{
		Name: "assets",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: AssetPattern, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					data, err := os.ReadFile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					asset := DescribeAsset(args.Path, data, platform)
					collector.add(asset.URI, data)

					desc, err := json.Marshal(asset)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					contents := "module.exports = " + string(desc) + ";"
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}
