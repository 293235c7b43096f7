package rating

import "github.com/abhisek/cogniz/internal/skillgraph"

// profileEdgeCount is how many skills the profile lists at each end.
const profileEdgeCount = 3

// DomainProfile is the ratings of one domain.
type DomainProfile struct {
	Domain  skillgraph.Domain `json:"domain"`
	Name    string            `json:"name"`
	Average float64           `json:"average"`
	Skills  []SkillView       `json:"skills"`
}

// Profile is the cognitive profile shown on dashboards.
type Profile struct {
	Domains        []DomainProfile `json:"domains"`
	OverallAverage float64         `json:"overallAverage"`
	Top            []SkillView     `json:"top"`
	Bottom         []SkillView     `json:"bottom"`
}

// Profile groups ratings by domain and reports the overall average and
// the top and bottom three skills. It reads state only.
func (e *Engine) Profile() Profile {
	views := e.All()

	byDomain := make(map[skillgraph.Domain][]SkillView)
	total := 0
	for _, v := range views {
		byDomain[v.Domain] = append(byDomain[v.Domain], v)
		total += v.Rating
	}

	p := Profile{
		Domains: []DomainProfile{},
		Top:     e.StrongestSkills(profileEdgeCount),
		Bottom:  e.WeakestSkills(profileEdgeCount),
	}
	if len(views) > 0 {
		p.OverallAverage = float64(total) / float64(len(views))
	}

	for _, d := range skillgraph.AllDomains() {
		skills := byDomain[d]
		if len(skills) == 0 {
			continue
		}
		sum := 0
		for _, s := range skills {
			sum += s.Rating
		}
		p.Domains = append(p.Domains, DomainProfile{
			Domain:  d,
			Name:    skillgraph.DomainDisplayName(d),
			Average: float64(sum) / float64(len(skills)),
			Skills:  skills,
		})
	}
	return p
}
