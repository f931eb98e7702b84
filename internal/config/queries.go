package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// queryFile is the on-disk format of the discovery query list.
type queryFile struct {
	Queries []string `yaml:"queries"`
}

// LoadQueries reads the discovery queries from a YAML file. Blank entries are
// dropped; an empty list is an error because a run without queries can only
// produce an empty artifact.
func LoadQueries(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read queries file %s", path)
	}

	var qf queryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, eris.Wrapf(err, "config: parse queries file %s", path)
	}

	queries := make([]string, 0, len(qf.Queries))
	seen := map[string]bool{}
	for _, q := range qf.Queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
	}
	if len(queries) == 0 {
		return nil, eris.Errorf("config: no queries in %s", path)
	}
	return queries, nil
}
