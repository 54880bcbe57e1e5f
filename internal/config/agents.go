package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/fibreflow/workforce/pkg/models"
)

// Roster holds the loaded agent definitions, keyed by name.
type Roster struct {
	agents map[string]*models.AgentDefinition
}

// Agents returns the definitions sorted by name.
func (r *Roster) Agents() []*models.AgentDefinition {
	defs := make([]*models.AgentDefinition, 0, len(r.agents))
	for _, d := range r.agents {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Get returns the definition for the given agent name, or nil.
func (r *Roster) Get(name string) *models.AgentDefinition {
	return r.agents[name]
}

// Fallback returns the fallback agent definition.
// Exactly one roster agent should carry fallback: true; if several do,
// the first by name wins.
func (r *Roster) Fallback() *models.AgentDefinition {
	for _, d := range r.Agents() {
		if d.Fallback {
			return d
		}
	}
	return nil
}

// Names returns the sorted agent names.
func (r *Roster) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of agents in the roster.
func (r *Roster) Len() int {
	return len(r.agents)
}

// LoadRoster loads agent definitions from YAML files in the given directory.
// Each *.yaml file holds one AgentDefinition. When the directory does not
// exist or holds no definitions, the built-in default roster is returned.
func LoadRoster(dir string) (*Roster, error) {
	if dir == "" {
		dir = filepath.Join("configs", "agents")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRoster(), nil
		}
		return nil, fmt.Errorf("read roster directory: %w", err)
	}

	agents := make(map[string]*models.AgentDefinition)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		def := &models.AgentDefinition{}
		if err := yaml.Unmarshal(data, def); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if err := validateDefinition(def); err != nil {
			return nil, fmt.Errorf("invalid agent in %s: %w", path, err)
		}
		if _, dup := agents[def.Name]; dup {
			return nil, fmt.Errorf("duplicate agent name %q in %s", def.Name, path)
		}
		agents[def.Name] = def
	}

	if len(agents) == 0 {
		return DefaultRoster(), nil
	}

	roster := &Roster{agents: agents}
	if roster.Fallback() == nil {
		return nil, fmt.Errorf("roster has no fallback agent (set fallback: true on one definition)")
	}
	return roster, nil
}

// validateDefinition checks required fields on an agent definition.
func validateDefinition(def *models.AgentDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("missing name")
	}
	if !def.Tier.Valid() {
		return fmt.Errorf("agent %q: unknown tier %q", def.Name, def.Tier)
	}
	if len(def.Keywords) == 0 && len(def.Phrases) == 0 && !def.Fallback {
		return fmt.Errorf("agent %q: no keywords, no phrases, not fallback", def.Name)
	}
	return nil
}

// DefaultRoster returns the built-in FibreFlow agent roster.
// This is used when no configs/agents directory is present.
func DefaultRoster() *Roster {
	defs := []*models.AgentDefinition{
		{
			Name:   "database",
			Domain: "PostgreSQL / Neon data operations",
			Persona: "You are the FibreFlow database agent. You answer questions about " +
				"the PostgreSQL/Neon databases backing FibreFlow (tickets, contractors, " +
				"projects, qa_photo_reviews) and run read-only queries through the " +
				"run_command tool (psql). Never modify data unless the request says so explicitly.",
			Keywords: map[string]int{
				"sql": 3, "query": 2, "database": 3, "postgres": 3, "postgresql": 3,
				"neon": 3, "table": 2, "schema": 2, "tickets": 2, "contractors": 2,
				"rows": 1, "column": 1, "index": 1,
			},
			Phrases:  []string{"qa photo reviews", "run a query", "database migration"},
			Tools:    []string{"run_command", "recall_memory", "save_memory", "read_state"},
			Tier:     models.TierDeep,
			Priority: 3,
		},
		{
			Name:   "deployment",
			Domain: "VPS, Docker, Nginx, Cloudflare tunnel operations",
			Persona: "You are the FibreFlow deployment agent. You operate the VPS fleet: " +
				"Docker Compose services, Nginx, Cloudflare tunnels. You diagnose outages, " +
				"restart services, and check container state via the run_command tool (ssh, " +
				"docker). Prefer inspection before mutation; never prune volumes.",
			Keywords: map[string]int{
				"deploy": 3, "deployment": 3, "docker": 3, "container": 2, "nginx": 3,
				"vps": 3, "ssh": 2, "restart": 2, "cloudflare": 3, "tunnel": 2,
				"compose": 2, "build": 1, "server": 1, "worker": 1,
			},
			Phrases:  []string{"docker compose", "restart the service", "cloudflare tunnel"},
			Tools:    []string{"run_command", "http_request", "recall_memory", "save_memory", "read_state"},
			Tier:     models.TierStandard,
			Priority: 2,
		},
		{
			Name:   "fieldops",
			Domain: "QFieldCloud and field data sync",
			Persona: "You are the FibreFlow field operations agent. You operate the " +
				"QFieldCloud (Django) instance used by field technicians: project sync " +
				"state, worker containers, the QGIS processing image, and package jobs. " +
				"Use run_command for ssh/docker and http_request for the QFieldCloud REST API.",
			Keywords: map[string]int{
				"qfield": 4, "qfieldcloud": 4, "qgis": 3, "gis": 2, "field": 2,
				"sync": 2, "photos": 2, "technician": 2, "package": 1, "project": 1,
			},
			Phrases:  []string{"field technician", "project sync", "processing image"},
			Tools:    []string{"run_command", "http_request", "recall_memory", "save_memory", "read_state"},
			Tier:     models.TierStandard,
			Priority: 2,
		},
		{
			Name:   "monitoring",
			Domain: "Service health, WhatsApp bridge, incident triage",
			Persona: "You are the FibreFlow monitoring agent. You watch service health " +
				"endpoints, the WhatsApp Business bridge, and uptime. You triage incidents: " +
				"gather evidence first (http_request, run_command), then summarize impact " +
				"and the next action.",
			Keywords: map[string]int{
				"monitor": 3, "monitoring": 3, "whatsapp": 4, "uptime": 3, "health": 2,
				"alert": 2, "incident": 3, "down": 2, "outage": 3, "logs": 2, "status": 1,
			},
			Phrases:  []string{"health check", "is it down", "whatsapp bridge"},
			Tools:    []string{"http_request", "run_command", "recall_memory", "save_memory", "read_state"},
			Tier:     models.TierLight,
			Priority: 2,
		},
		{
			Name:   "runbook",
			Domain: "Runbooks, documentation, general questions",
			Persona: "You are the FibreFlow runbook agent and the fallback for requests " +
				"no specialist claims. You answer from the markdown runbook corpus " +
				"(read_runbook, list_runbooks) and from accumulated memory. When a request " +
				"clearly belongs to a specialist, say which agent to ask instead.",
			Keywords: map[string]int{
				"runbook": 3, "docs": 2, "documentation": 2, "guide": 2, "how": 1,
				"help": 1, "explain": 1,
			},
			Phrases:  []string{"how do i", "where is the doc"},
			Tools:    []string{"read_runbook", "list_runbooks", "recall_memory", "save_memory", "read_state"},
			Tier:     models.TierLight,
			Priority: 1,
			Fallback: true,
		},
	}

	agents := make(map[string]*models.AgentDefinition, len(defs))
	for _, d := range defs {
		agents[d.Name] = d
	}
	return &Roster{agents: agents}
}
