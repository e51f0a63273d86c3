package swarm

// Batch is the postage stamp view Bee returns for batches owned by the node.
type Batch struct {
	BatchID       string `json:"batchID"`
	Utilization   int    `json:"utilization"`
	Usable        bool   `json:"usable"`
	Label         string `json:"label"`
	Depth         int    `json:"depth"`
	Amount        string `json:"amount"`
	BucketDepth   int    `json:"bucketDepth"`
	BlockNumber   int64  `json:"blockNumber"`
	ImmutableFlag bool   `json:"immutableFlag"`
	Exists        bool   `json:"exists"`
	BatchTTL      int64  `json:"batchTTL"`
}

type batchIDResponse struct {
	BatchID string `json:"batchID"`
}

type stampsResponse struct {
	Stamps []Batch `json:"stamps"`
}

type walletResponse struct {
	BZZBalance string `json:"bzzBalance"`
}

type nodeResponse struct {
	BeeMode string `json:"beeMode"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
