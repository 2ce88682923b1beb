package command

// Response bodies of the shardkv HTTP API, as printed by the json and
// yaml output formats.

type entry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

type keyResult struct {
	Key string `json:"key" yaml:"key"`
}

type clearResult struct {
	Cleared bool `json:"cleared" yaml:"cleared"`
}

type addManyResult struct {
	Added   int      `json:"added" yaml:"added"`
	Skipped []string `json:"skipped" yaml:"skipped"`
}

type updateManyResult struct {
	Updated int      `json:"updated" yaml:"updated"`
	Absent  []string `json:"absent" yaml:"absent"`
}

type removeManyResult struct {
	Removed int      `json:"removed" yaml:"removed"`
	Absent  []string `json:"absent" yaml:"absent"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type snapshotResult struct {
	Path    string `json:"path" yaml:"path"`
	Entries int    `json:"entries" yaml:"entries"`
	Bytes   int64  `json:"bytes" yaml:"bytes"`
}

type shardStat struct {
	Index int `json:"index" yaml:"index"`
	Count int `json:"count" yaml:"count"`
}

type shardsResult struct {
	ShardCount int         `json:"shard_count" yaml:"shard_count"`
	Total      int         `json:"total" yaml:"total"`
	Shards     []shardStat `json:"shards" yaml:"shards"`
}

type statusResult struct {
	Status     string `json:"status" yaml:"status"`
	Version    string `json:"version" yaml:"version"`
	Commit     string `json:"commit" yaml:"commit"`
	GoVersion  string `json:"go_version" yaml:"go_version"`
	Keys       int    `json:"keys" yaml:"keys"`
	ShardCount int    `json:"shard_count" yaml:"shard_count"`
	Time       string `json:"time" yaml:"time"`
}

type healthResult struct {
	Status string `json:"status" yaml:"status"`
	Time   string `json:"time" yaml:"time"`
}
