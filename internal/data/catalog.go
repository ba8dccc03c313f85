package data

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/arena-server/internal/engine"
)

//go:embed catalog.yaml
var embedded []byte

// MapDef holds the spawn layout for one map.
type MapDef struct {
	Name   engine.MapName                `yaml:"name" json:"name"`
	Spawns map[engine.Team][]engine.Vec3 `yaml:"spawns" json:"spawns"`
}

// WeaponDef holds one weapon's stats. The server only checks names; the rest
// is published for clients.
type WeaponDef struct {
	Name      string  `yaml:"name" json:"name"`
	Damage    int     `yaml:"damage" json:"damage"`
	FireRate  float64 `yaml:"fire_rate" json:"fireRate"` // shots per second
	ReloadSec float64 `yaml:"reload_sec" json:"reloadSec"`
	Magazine  int     `yaml:"magazine" json:"magazine"`
	Reserve   int     `yaml:"reserve" json:"reserve"`
	Range     float64 `yaml:"range" json:"range"`
	Spread    float64 `yaml:"spread" json:"spread"`
}

// Catalog is the static map and weapon table. It is read-only after load.
type Catalog struct {
	maps    []MapDef
	weapons []WeaponDef
	mapIdx  map[engine.MapName]int
	weapIdx map[string]int
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// Load reads a catalog file; an empty path means the embedded one.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var file struct {
		Maps    []MapDef    `yaml:"maps"`
		Weapons []WeaponDef `yaml:"weapons"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		maps:    file.Maps,
		weapons: file.Weapons,
		mapIdx:  make(map[engine.MapName]int, len(file.Maps)),
		weapIdx: make(map[string]int, len(file.Weapons)),
	}
	for i, m := range file.Maps {
		if m.Name == "" {
			return nil, fmt.Errorf("catalog: map %d has no name", i)
		}
		if _, dup := c.mapIdx[m.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate map %q", m.Name)
		}
		for _, team := range engine.Teams {
			if len(m.Spawns[team]) == 0 {
				return nil, fmt.Errorf("catalog: map %q has no %s spawns", m.Name, team)
			}
		}
		c.mapIdx[m.Name] = i
	}
	for i, w := range file.Weapons {
		if w.Name == "" {
			return nil, fmt.Errorf("catalog: weapon %d has no name", i)
		}
		c.weapIdx[w.Name] = i
	}
	return c, nil
}

func (c *Catalog) HasMap(name engine.MapName) bool {
	_, ok := c.mapIdx[name]
	return ok
}

// SpawnPoints returns the team's spawn points on a map, or nil if either is
// unknown. Callers must not modify the slice.
func (c *Catalog) SpawnPoints(name engine.MapName, team engine.Team) []engine.Vec3 {
	i, ok := c.mapIdx[name]
	if !ok {
		return nil
	}
	return c.maps[i].Spawns[team]
}

func (c *Catalog) HasWeapon(name string) bool {
	_, ok := c.weapIdx[name]
	return ok
}

// Maps returns the map definitions in file order.
func (c *Catalog) Maps() []MapDef { return c.maps }

// Weapons returns the weapon definitions in file order.
func (c *Catalog) Weapons() []WeaponDef { return c.weapons }
