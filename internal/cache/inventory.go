package cache

import "time"

// KeyPrefix namespaces every key this service writes to a shared Redis.
const KeyPrefix = "geofeed:"

const (
	// PostClustersKey holds the whole named cluster list.
	PostClustersKey = "PostClusters"
)

const (
	// ClustersTTL is the default lifetime of the cached cluster list.
	ClustersTTL = 30 * time.Minute
)
