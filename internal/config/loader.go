package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load reads a job file.
func Load(path string) (*Job, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading job %s: %w", path, err)
	}
	job, err := unmarshal(k)
	if err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", path, err)
	}
	job.Path = path
	if job.Name == "" {
		job.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return job, nil
}

// Parse decodes a job from YAML bytes.
func Parse(data []byte) (*Job, error) {
	m, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parsing job: %w", err)
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(m, ""), nil); err != nil {
		return nil, err
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Job, error) {
	var job Job
	if err := k.UnmarshalWithConf("", &job, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	return &job, nil
}

// FindJobs expands paths into job files. Directories contribute their
// *.yaml and *.yml files, sorted by name.
func FindJobs(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			found = append(found, filepath.Join(p, e.Name()))
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no job files found in %s", strings.Join(paths, ", "))
	}
	return out, nil
}
