package alias

import (
	"sort"
	"strconv"
	"strings"
)

// Deployment is one timestamped database belonging to a tenant
type Deployment struct {
	Name      string
	Timestamp int64
}

// ParseTimestamp extracts the trailing timestamp from a database named
// {tenant}-{timestamp}. It returns false for names that do not belong to
// the tenant or do not end in an integer.
func ParseTimestamp(tenant, dbName string) (int64, bool) {
	prefix := tenant + "-"
	if !strings.HasPrefix(dbName, prefix) {
		return 0, false
	}
	ts, err := strconv.ParseInt(dbName[len(prefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// TenantDeployments filters the full database list down to the tenant's
// timestamped deployments, sorted newest first.
func TenantDeployments(tenant string, databases []string) []Deployment {
	var deployments []Deployment
	for _, name := range databases {
		if ts, ok := ParseTimestamp(tenant, name); ok {
			deployments = append(deployments, Deployment{Name: name, Timestamp: ts})
		}
	}
	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].Timestamp > deployments[j].Timestamp
	})
	return deployments
}

// IsLatest reports whether timestamp is the largest among the tenant's
// deployments. With no deployments present it returns true, so the first
// load for a tenant always claims the alias.
func IsLatest(tenant string, timestamp int64, databases []string) bool {
	deployments := TenantDeployments(tenant, databases)
	if len(deployments) == 0 {
		return true
	}
	return timestamp >= deployments[0].Timestamp
}

// RetentionVictims selects the tenant's databases to drop: everything
// outside the keep newest, excluding the current alias target. The alias
// exclusion is a safety rail; under normal operation the alias always
// points inside the kept set.
func RetentionVictims(tenant string, databases []string, keep int, aliasTarget string) []string {
	deployments := TenantDeployments(tenant, databases)
	if len(deployments) <= keep {
		return nil
	}

	var victims []string
	for _, d := range deployments[keep:] {
		if d.Name == aliasTarget {
			continue
		}
		victims = append(victims, d.Name)
	}
	return victims
}
