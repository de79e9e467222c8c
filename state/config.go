package state

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/beagley/hubclient/helpers"
	"github.com/beagley/hubclient/log2"
	tele_config "github.com/beagley/hubclient/tele/config"
	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Hub tele_config.Config `hcl:"hub"`
	Log struct {
		Level string `hcl:"level"` // error, info, debug
	} `hcl:"log"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// LogLevel default is info. Hub log_debug raises level of hub client logger only.
func (c *Config) LogLevel() (log2.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "", "info":
		return log2.LInfo, nil
	case "error":
		return log2.LError, nil
	case "debug":
		return log2.LDebug, nil
	}
	return log2.LInfo, errors.NotValidf("config log level=%s", c.Log.Level)
}

// Validate is separate from ReadConfig because env and flags override file values.
func (c *Config) Validate() error {
	_, errLevel := c.LogLevel()
	return helpers.FoldErrors([]error{c.Hub.Validate(), errLevel})
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig merges sources in order, later values overwrite earlier.
// No names means empty config, all defaults.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) != 0 {
		if osfs, ok := fs.(*OsFullReader); ok {
			dir, name := filepath.Split(names[0])
			osfs.SetBase(dir)
			names[0] = name
		}
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
