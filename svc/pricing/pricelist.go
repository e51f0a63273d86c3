package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

//go:embed pricelist.yaml
var defaultPriceList []byte

const (
	GiB = int64(1) << 30

	// DefaultCountLimit caps uploads and downloads per period.
	DefaultCountLimit int64 = 100_000
)

// Option is a selectable size in GB.
type Option struct {
	Size  int    `yaml:"size" json:"size"`
	Exp   int    `yaml:"exp" json:"exp"`
	Label string `yaml:"label" json:"label"`
}

type Dimension struct {
	PricePerGB    float64  `yaml:"price_per_gb" json:"pricePerGb"`
	DefaultOption int      `yaml:"default_option" json:"defaultOption"`
	Options       []Option `yaml:"options" json:"options"`
}

func (d Dimension) has(size int) bool {
	for _, o := range d.Options {
		if o.Size == size {
			return true
		}
	}
	return false
}

// PriceList is the public subscription offer served on /plans/config.
type PriceList struct {
	Currency  string    `yaml:"currency" json:"currency"`
	Frequency string    `yaml:"frequency" json:"frequency"`
	Storage   Dimension `yaml:"storage" json:"storageCapacity"`
	Bandwidth Dimension `yaml:"bandwidth" json:"bandwidth"`
}

// Quotas are the limits a plan grants.
type Quotas struct {
	UploadSizeLimit    int64 `json:"uploadSizeLimit"`
	UploadCountLimit   int64 `json:"uploadCountLimit"`
	DownloadSizeLimit  int64 `json:"downloadSizeLimit"`
	DownloadCountLimit int64 `json:"downloadCountLimit"`
}

// Quote is the monthly price of a storage/bandwidth pair.
type Quote struct {
	StorageGB   int
	BandwidthGB int
	AmountMinor int64
	Currency    string
	Frequency   string
	Quotas      Quotas
}

// TierKey identifies the pair for providers with catalog prices.
func (q Quote) TierKey() string {
	return fmt.Sprintf("%d-%d", q.StorageGB, q.BandwidthGB)
}

// DefaultPriceList returns the embedded price list.
func DefaultPriceList() (*PriceList, error) {
	return ParsePriceList(defaultPriceList)
}

// LoadPriceList reads a YAML price list from path, falling back to the
// embedded one when path is empty.
func LoadPriceList(path string) (*PriceList, error) {
	if path == "" {
		return DefaultPriceList()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price list: %w", err)
	}
	return ParsePriceList(data)
}

func ParsePriceList(data []byte) (*PriceList, error) {
	var pl PriceList
	if err := yaml.Unmarshal(data, &pl); err != nil {
		return nil, errors.Join(ErrInvalidPriceList, err)
	}
	if err := pl.validate(); err != nil {
		return nil, err
	}
	return &pl, nil
}

func (pl *PriceList) validate() error {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(pl.Currency)))
	if err != nil {
		return errors.Join(ErrInvalidPriceList, err)
	}
	pl.Currency = unit.String()

	if pl.Frequency == "" {
		pl.Frequency = "MONTH"
	}
	for name, d := range map[string]Dimension{"storage": pl.Storage, "bandwidth": pl.Bandwidth} {
		if len(d.Options) == 0 {
			return fmt.Errorf("%w: %s has no options", ErrInvalidPriceList, name)
		}
		if d.PricePerGB <= 0 {
			return fmt.Errorf("%w: %s price must be positive", ErrInvalidPriceList, name)
		}
		if d.DefaultOption < 0 || d.DefaultOption >= len(d.Options) {
			return fmt.Errorf("%w: %s default option out of range", ErrInvalidPriceList, name)
		}
	}
	return nil
}

// Quote prices a storage/bandwidth pair. Both sizes must be listed options.
func (pl *PriceList) Quote(storageGB, bandwidthGB int) (Quote, error) {
	if !pl.Storage.has(storageGB) {
		return Quote{}, fmt.Errorf("%w: storage %d GB", ErrUnknownTier, storageGB)
	}
	if !pl.Bandwidth.has(bandwidthGB) {
		return Quote{}, fmt.Errorf("%w: bandwidth %d GB", ErrUnknownTier, bandwidthGB)
	}

	total := float64(storageGB)*pl.Storage.PricePerGB + float64(bandwidthGB)*pl.Bandwidth.PricePerGB
	return Quote{
		StorageGB:   storageGB,
		BandwidthGB: bandwidthGB,
		AmountMinor: int64(math.Round(total * 100)),
		Currency:    pl.Currency,
		Frequency:   pl.Frequency,
		Quotas: Quotas{
			UploadSizeLimit:    int64(storageGB) * GiB,
			UploadCountLimit:   DefaultCountLimit,
			DownloadSizeLimit:  int64(bandwidthGB) * GiB,
			DownloadCountLimit: DefaultCountLimit,
		},
	}, nil
}

// StorageGB converts an upload quota back to whole GB.
func StorageGB(uploadSizeLimit int64) float64 {
	return float64(uploadSizeLimit) / float64(GiB)
}
