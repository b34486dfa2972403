package io

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"

	"github.com/phil-mansfield/amrpart/amr"
	"github.com/phil-mansfield/amrpart/geom"
)

const ExampleHierarchyFile = `[Domain]

#######################
# Required Parameters #
#######################

# Number of spatial dimensions. Must be 1, 2, or 3.
Dim = 2
# Number of level 0 cells along each axis.
Cells = 8 8
# Physical bounds of the domain.
ProbLo = 0 0
ProbHi = 1 1

#######################
# Optional Parameters #
#######################

# Which axes wrap around. Defaults to none.
# Periodic = true true

# One section per level. Grid gives the inclusive low and high cell indices of
# one block, low corner first, in that level's index space. Repeat it once per
# block. Every level above 0 must also give RefRatio, the refinement ratio
# between it and the level below it.

[Level "0"]
Grid = 0 0 3 7
Grid = 4 0 7 7

[Level "1"]
RefRatio = 2 2
Grid = 4 4 11 11`

// DomainConfig describes the level 0 index space and physical extent.
type DomainConfig struct {
	// Required
	Dim    int    `yaml:"dim"`
	Cells  string `yaml:"cells"`
	ProbLo string `yaml:"problo"`
	ProbHi string `yaml:"probhi"`

	// Optional
	Periodic string `yaml:"periodic"`
}

// LevelConfig describes the grid blocks of one level.
type LevelConfig struct {
	RefRatio string   `yaml:"refratio"`
	Grid     []string `yaml:"grid"`
}

// HierarchyConfig is the contents of a hierarchy file. The same layout is
// used for gcfg and YAML files.
type HierarchyConfig struct {
	Domain DomainConfig            `yaml:"domain"`
	Level  map[string]*LevelConfig `yaml:"level"`
}

// ReadHierarchyConfig reads a hierarchy file. Files ending in .yaml or .yml
// are read as YAML and everything else as gcfg.
func ReadHierarchyConfig(fname string) (*HierarchyConfig, error) {
	con := &HierarchyConfig{}

	switch strings.ToLower(filepath.Ext(fname)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(fname)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, con); err != nil {
			return nil, fmt.Errorf("Could not parse '%s': %w", fname, err)
		}
	default:
		if err := gcfg.ReadFileInto(con, fname); err != nil {
			return nil, err
		}
	}

	return con, nil
}

// ParseHierarchyConfig parses the gcfg text of a hierarchy file.
func ParseHierarchyConfig(text string) (*HierarchyConfig, error) {
	con := &HierarchyConfig{}
	if err := gcfg.ReadStringInto(con, text); err != nil {
		return nil, err
	}
	return con, nil
}

// Build checks the config and constructs the hierarchy it describes.
func (con *HierarchyConfig) Build() (*amr.Levels, error) {
	d := &con.Domain
	dim := d.Dim
	if dim < 1 || dim > geom.MaxDim {
		return nil, fmt.Errorf(
			"Domain 'Dim' must be in range [1, %d], but is %d.",
			geom.MaxDim, dim,
		)
	}

	cells, err := parseInts(d.Cells, dim, "Domain 'Cells'")
	if err != nil {
		return nil, err
	}
	lo, err := parseFloats(d.ProbLo, dim, "Domain 'ProbLo'")
	if err != nil {
		return nil, err
	}
	hi, err := parseFloats(d.ProbHi, dim, "Domain 'ProbHi'")
	if err != nil {
		return nil, err
	}
	periodic, err := parseBools(d.Periodic, dim, "Domain 'Periodic'")
	if err != nil {
		return nil, err
	}

	domainHi := geom.IntVect{}
	for i := 0; i < dim; i++ {
		if cells[i] <= 0 {
			return nil, fmt.Errorf(
				"Domain 'Cells' must be positive, but is %s.", d.Cells,
			)
		} else if hi[i] <= lo[i] {
			return nil, fmt.Errorf(
				"Domain 'ProbHi' must be larger than 'ProbLo' along every "+
					"axis, but axis %d spans [%g, %g].", i, lo[i], hi[i],
			)
		}
		domainHi[i] = cells[i] - 1
	}
	base := geom.NewGeometry(
		geom.NewBox(dim, geom.IntVect{}, domainHi), lo, hi, periodic,
	)

	levels, err := con.levels()
	if err != nil {
		return nil, err
	}

	ratios := []geom.IntVect{}
	grids := make([][]geom.Box, len(levels))
	for lev, lc := range levels {
		if lev > 0 {
			name := fmt.Sprintf("Level \"%d\" 'RefRatio'", lev)
			r, err := parseInts(lc.RefRatio, dim, name)
			if err != nil {
				return nil, err
			}
			ratios = append(ratios, r)
		}

		for i, s := range lc.Grid {
			name := fmt.Sprintf("Level \"%d\" 'Grid' %d", lev, i)
			b, err := parseBox(s, dim, name)
			if err != nil {
				return nil, err
			}
			grids[lev] = append(grids[lev], b)
		}
	}

	return amr.New(base, ratios, grids)
}

// levels returns the level sections in order, checking that they are
// numbered 0, 1, 2, ... with no gaps.
func (con *HierarchyConfig) levels() ([]*LevelConfig, error) {
	if len(con.Level) == 0 {
		return nil, fmt.Errorf("Need to specify at least one Level section.")
	}

	idxs := []int{}
	byIdx := map[int]*LevelConfig{}
	for name, lc := range con.Level {
		lev, err := strconv.Atoi(name)
		if err != nil || lev < 0 {
			return nil, fmt.Errorf(
				"Level names must be non-negative integers, but one is '%s'.",
				name,
			)
		}
		if lc == nil {
			lc = &LevelConfig{}
		}
		idxs = append(idxs, lev)
		byIdx[lev] = lc
	}
	sort.Ints(idxs)

	out := make([]*LevelConfig, len(idxs))
	for i, lev := range idxs {
		if lev != i {
			return nil, fmt.Errorf(
				"Levels must be numbered 0 to %d with no gaps, but level %d "+
					"is missing.", len(idxs)-1, i,
			)
		}
		out[i] = byIdx[lev]
	}
	return out, nil
}

func parseBox(s string, dim int, name string) (geom.Box, error) {
	fields := strings.Fields(s)
	if len(fields) != 2*dim {
		return geom.Box{}, fmt.Errorf(
			"%s must have %d values, but is '%s'.", name, 2*dim, s,
		)
	}
	lo, err := parseInts(strings.Join(fields[:dim], " "), dim, name)
	if err != nil {
		return geom.Box{}, err
	}
	hi, err := parseInts(strings.Join(fields[dim:], " "), dim, name)
	if err != nil {
		return geom.Box{}, err
	}
	return geom.NewBox(dim, lo, hi), nil
}

func parseInts(s string, dim int, name string) (geom.IntVect, error) {
	iv := geom.IntVect{}
	fields := strings.Fields(s)
	if len(fields) != dim {
		return iv, fmt.Errorf(
			"%s must have %d values, but is '%s'.", name, dim, s,
		)
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return iv, fmt.Errorf("%s has a non-integer value, '%s'.", name, f)
		}
		iv[i] = n
	}
	return iv, nil
}

func parseFloats(s string, dim int, name string) (geom.Vec, error) {
	v := geom.Vec{}
	fields := strings.Fields(s)
	if len(fields) != dim {
		return v, fmt.Errorf(
			"%s must have %d values, but is '%s'.", name, dim, s,
		)
	}
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return v, fmt.Errorf("%s has a non-numeric value, '%s'.", name, f)
		}
		v[i] = x
	}
	return v, nil
}

// parseBools treats an empty string as all false.
func parseBools(s string, dim int, name string) ([geom.MaxDim]bool, error) {
	out := [geom.MaxDim]bool{}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return out, nil
	} else if len(fields) != dim {
		return out, fmt.Errorf(
			"%s must have %d values, but is '%s'.", name, dim, s,
		)
	}
	for i, f := range fields {
		b, err := strconv.ParseBool(f)
		if err != nil {
			return out, fmt.Errorf("%s has a non-boolean value, '%s'.", name, f)
		}
		out[i] = b
	}
	return out, nil
}
