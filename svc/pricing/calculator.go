package pricing

import (
	"fmt"
	"math/big"

	"github.com/swarmdock/backend/pkg/bzz"
)

// PricePerChunkDay is the storage price in PLUR per chunk per block (24000)
// times the number of 5 second blocks per day (17280).
const PricePerChunkDay int64 = 24_000 * 17_280

// depthCapacity is the effective storage, in GB, a batch of a given depth
// holds once bucket collisions are accounted for. Sorted by depth.
var depthCapacity = []struct {
	depth int
	gb    float64
}{
	{17, 0}, {18, 0}, {19, 0}, {20, 0}, {21, 0},
	{22, 4},
	{23, 17},
	{24, 44},
	{25, 102},
	{26, 225},
	{27, 480},
	{28, 1_000},
	{29, 2_060},
	{30, 4_200},
	{31, 8_520},
	{32, 17_200},
	{33, 34_630},
	{34, 69_580},
	{35, 139_630},
	{36, 279_910},
	{37, 560_730},
	{38, 1_120_000},
	{39, 2_250_000},
	{40, 4_500_000},
	{41, 9_000_000},
}

// MaxStorageGB is the largest request a single batch can serve.
var MaxStorageGB = depthCapacity[len(depthCapacity)-1].gb

// Capacity is the batch needed to store some data for some days.
type Capacity struct {
	Depth         int
	Amount        *big.Int
	EstimatedCost bzz.Amount
}

// DepthFor returns the smallest depth whose effective capacity covers gb.
func DepthFor(gb float64) (int, error) {
	if gb < 0 {
		return 0, fmt.Errorf("%w: negative storage %v", ErrInvalidRequest, gb)
	}
	for _, d := range depthCapacity {
		if d.gb >= gb {
			return d.depth, nil
		}
	}
	return 0, fmt.Errorf("%w: %v GB", ErrCapacityExceeded, gb)
}

// CalculateCapacity sizes a batch holding requestedGB for days. The cost is
// 2^depth chunks times the per-chunk amount.
func CalculateCapacity(days int, requestedGB float64) (Capacity, error) {
	if days <= 0 {
		return Capacity{}, fmt.Errorf("%w: days must be positive", ErrInvalidRequest)
	}
	depth, err := DepthFor(requestedGB)
	if err != nil {
		return Capacity{}, err
	}

	amount := new(big.Int).Mul(big.NewInt(int64(days)), big.NewInt(PricePerChunkDay))
	chunks := new(big.Int).Lsh(big.NewInt(1), uint(depth))

	return Capacity{
		Depth:         depth,
		Amount:        amount,
		EstimatedCost: bzz.FromPLUR(new(big.Int).Mul(chunks, amount)),
	}, nil
}
