// Package plant loads the static shop-floor configuration: the processing
// network, machine capabilities, partner pairs and cost-model durations.
package plant

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"mesplane/internal/machine"
	"mesplane/internal/routing"

	"gopkg.in/yaml.v3"
)

//go:embed default_plant.yaml
var defaultPlantYAML []byte

// Durations used when the plant file leaves them unset.
const (
	DefaultToolChange  = 30
	DefaultPassThrough = 5
)

// DefaultRawMaterials are the source pieces used when none are configured.
var DefaultRawMaterials = []string{"P1", "P2"}

type edgeDoc struct {
	Duration int    `yaml:"duration"`
	Tool     string `yaml:"tool"`
}

type document struct {
	RawMaterials []string                      `yaml:"raw_materials"`
	ToolChange   *int                          `yaml:"tool_change_duration"`
	PassThrough  *int                          `yaml:"pass_through_duration"`
	Network      map[string]map[string]edgeDoc `yaml:"network"`
	Machines     map[string][]string           `yaml:"machines"`
	Partners     map[string]string             `yaml:"partners"`
}

// Plant is the validated, read-only shop-floor configuration.
type Plant struct {
	Network      *routing.Network
	RawMaterials []string
	Machines     []machine.Spec
	Durations    machine.Durations
}

// Default returns the embedded reference plant.
func Default() (*Plant, error) {
	return Parse(defaultPlantYAML)
}

// Load reads a plant file. An empty path yields the embedded plant.
func Load(path string) (*Plant, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plant file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("plant file %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a plant document.
func Parse(data []byte) (*Plant, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid plant yaml: %w", err)
	}
	if len(doc.Network) == 0 {
		return nil, fmt.Errorf("network is required")
	}
	if len(doc.Machines) == 0 {
		return nil, fmt.Errorf("machines are required")
	}

	p := &Plant{
		Network:      routing.NewNetwork(),
		RawMaterials: doc.RawMaterials,
		Durations: machine.Durations{
			ToolChange:  DefaultToolChange,
			PassThrough: DefaultPassThrough,
		},
	}
	if len(p.RawMaterials) == 0 {
		p.RawMaterials = append([]string(nil), DefaultRawMaterials...)
	}
	if doc.ToolChange != nil {
		p.Durations.ToolChange = *doc.ToolChange
	}
	if doc.PassThrough != nil {
		p.Durations.PassThrough = *doc.PassThrough
	}

	for _, from := range sortedKeys(doc.Network) {
		p.Network.AddNode(from)
		dests := doc.Network[from]
		for _, to := range sortedKeys(dests) {
			e := dests[to]
			if err := p.Network.AddEdge(from, to, e.Duration, e.Tool); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range sortedKeys(doc.Machines) {
		p.Machines = append(p.Machines, machine.Spec{
			Name:    name,
			Tools:   doc.Machines[name],
			Partner: doc.Partners[name],
		})
	}
	for secondary := range doc.Partners {
		if _, ok := doc.Machines[secondary]; !ok {
			return nil, fmt.Errorf("partner entry for unknown machine %q", secondary)
		}
	}

	// Surface partner and duration errors at load time.
	if _, err := p.NewPool(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewPool builds a fresh machine pool: no tools mounted, every machine idle.
func (p *Plant) NewPool() (*machine.Pool, error) {
	return machine.NewPool(p.Machines, p.Durations)
}

// PlanFor returns the shortest plan for an integer product type.
func (p *Plant) PlanFor(productType int) (routing.Plan, error) {
	return routing.ShortestPlan(p.Network, routing.ProductNode(productType), p.RawMaterials)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
