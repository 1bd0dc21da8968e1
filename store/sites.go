package store

import (
	"sort"
	"strings"
	"sync"

	"cwcinspect/models"
	"cwcinspect/workflow"
)

// SubDivisions are the predefined SDO jurisdictions offered to admins.
var SubDivisions = []string{
	"Coimbatore Sub-Division",
	"Trichy Sub-Division",
	"Madurai Sub-Division",
	"Thanjavur Sub-Division",
	"Salem Sub-Division",
	"Erode Sub-Division",
	"Karur Sub-Division",
	"Tirunelveli Sub-Division",
	"Vellore Sub-Division",
	"Dharmapuri Sub-Division",
}

// SiteCatalog holds the read-only site reference data.
type SiteCatalog struct {
	mu    sync.RWMutex
	sites []models.Site
}

// NewSiteCatalog returns a catalog of sites.
func NewSiteCatalog(sites []models.Site) *SiteCatalog {
	c := &SiteCatalog{}
	c.Replace(sites)
	return c
}

// Replace swaps the catalog after a reload.
func (c *SiteCatalog) Replace(sites []models.Site) {
	cp := make([]models.Site, len(sites))
	copy(cp, sites)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sites = cp
}

// All returns a copy of every site.
func (c *SiteCatalog) All() []models.Site {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Site, len(c.sites))
	copy(out, c.sites)
	return out
}

// Len returns the number of sites.
func (c *SiteCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sites)
}

// ByName returns the site named name.
func (c *SiteCatalog) ByName(name string) (models.Site, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.sites {
		if s.Name == name {
			return s, true
		}
	}
	return models.Site{}, false
}

// VisibleTo returns the sites officer may browse whose name or district
// contains search (case-insensitive).
func (c *SiteCatalog) VisibleTo(officer models.Officer, search string) []models.Site {
	needle := strings.ToUpper(search)
	out := []models.Site{}
	for _, s := range c.All() {
		haystack := strings.ToUpper(s.Name) + strings.ToUpper(s.District)
		if strings.Contains(haystack, needle) && workflow.IsVisible(officer, s) {
			out = append(out, s)
		}
	}
	return out
}

// Locations returns the distinct district names and the site names in one
// sorted list, used to build jurisdiction strings.
func (c *SiteCatalog) Locations() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range c.All() {
		if s.District != "" && !seen[s.District] {
			seen[s.District] = true
			out = append(out, s.District)
		}
	}
	for _, s := range c.All() {
		if s.Name != "" {
			out = append(out, s.Name)
		}
	}
	sort.Strings(out)
	return out
}
