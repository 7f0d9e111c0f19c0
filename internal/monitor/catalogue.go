package monitor

import (
	"fmt"
	"sort"
	"strings"

	"sdgmonitor/internal/model"
)

var goalNames = map[int]string{
	1:  "No Poverty",
	2:  "Zero Hunger",
	3:  "Good Health & Well-Being",
	4:  "Quality Education",
	5:  "Gender Equality",
	6:  "Clean Water & Sanitation",
	7:  "Affordable & Clean Energy",
	8:  "Decent Work & Economic Growth",
	9:  "Industry, Innovation & Infrastructure",
	10: "Reduced Inequalities",
	11: "Sustainable Cities & Communities",
	12: "Responsible Consumption & Production",
	13: "Climate Action",
	14: "Life Below Water",
	15: "Life On Land",
	16: "Peace, Justice & Strong Institutions",
	17: "Partnerships for the Goals",
}

func GoalName(goal int) (string, bool) {
	name, ok := goalNames[goal]
	return name, ok
}

// GoalLabels lists all 17 goals as "SDG n · Name".
func GoalLabels() []string {
	labels := make([]string, 0, len(goalNames))
	for goal := 1; goal <= len(goalNames); goal++ {
		labels = append(labels, fmt.Sprintf("SDG %d · %s", goal, goalNames[goal]))
	}
	return labels
}

// row builds a built-in catalogue entry. direction is catalogue wording
// ("up", "down"); a row that does not validate is a programming error.
func row(goal int, target, label, code, unit, direction string, goal2030 *float64) model.Indicator {
	indicator, err := NewIndicator(goal, target, label, code, unit, direction, goal2030)
	if err != nil {
		panic(err)
	}
	return indicator
}

// NewIndicator validates a catalogue row and builds its 2030 target.
func NewIndicator(goal int, target, label, code, unit, direction string, goal2030 *float64) (model.Indicator, error) {
	name, ok := goalNames[goal]
	if !ok {
		return model.Indicator{}, fmt.Errorf("catalogue %q: unknown goal %d", label, goal)
	}
	parsed, err := model.ParseDirection(direction)
	if err != nil {
		return model.Indicator{}, fmt.Errorf("catalogue %q: %w", label, err)
	}
	goalTarget, err := model.NewIndicatorTarget(parsed, goal2030)
	if err != nil {
		return model.Indicator{}, fmt.Errorf("catalogue %q: %w", label, err)
	}
	return model.Indicator{
		Goal:     goal,
		GoalName: name,
		Target:   target,
		Label:    label,
		Code:     strings.TrimSpace(code),
		Unit:     unit,
		Goal2030: goalTarget,
	}, nil
}

// DefaultCatalogue is the built-in WDI subset mapped onto SDG targets.
func DefaultCatalogue() []model.Indicator {
	return []model.Indicator{
		row(1, "1.1", "Poverty headcount (<$3.00, 2021 PPP) (% pop)", "SI.POV.DDAY", "%", "down", model.Float(0)),
		row(2, "2.1", "Undernourishment (% pop)", "SN.ITK.DEFC.ZS", "%", "down", nil),
		row(3, "3.1", "Maternal mortality (per 100k)", "SH.STA.MMRT", "", "down", model.Float(70)),
		row(3, "3.2", "Infant mortality (per 1,000)", "SP.DYN.IMRT.IN", "", "down", nil),
		row(4, "4.1", "Primary net enrollment (%)", "SE.PRM.NENR", "%", "up", model.Float(100)),
		row(6, "6.1", "Basic drinking water (% pop)", "SH.H2O.BASW.ZS", "%", "up", model.Float(100)),
		row(6, "6.2", "Basic sanitation (% pop)", "SH.STA.BASS.ZS", "%", "up", model.Float(100)),
		row(7, "7.1", "Access to electricity (% pop)", "EG.ELC.ACCS.ZS", "%", "up", model.Float(100)),
		row(7, "7.2", "Renewable energy (% of TFEC)", "EG.FEC.RNEW.ZS", "%", "up", nil),
		row(8, "8.5", "Unemployment (% labor force)", "SL.UEM.TOTL.ZS", "%", "down", nil),
		row(9, "9.2", "Manufacturing VA (% of GDP)", "NV.IND.MANF.ZS", "%", "up", nil),
		row(9, "9.c", "Mobile subs (per 100 people)", "IT.CEL.SETS.P2", "", "up", nil),
	}
}

// IndicatorsForGoal returns the catalogue rows of a goal ordered by target
// and label.
func IndicatorsForGoal(catalogue []model.Indicator, goal int) []model.Indicator {
	out := make([]model.Indicator, 0)
	for _, indicator := range catalogue {
		if indicator.Goal == goal {
			out = append(out, indicator)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// FilterIndicators keeps rows whose label contains query, ignoring case.
func FilterIndicators(indicators []model.Indicator, query string) []model.Indicator {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return indicators
	}
	out := make([]model.Indicator, 0, len(indicators))
	for _, indicator := range indicators {
		if strings.Contains(strings.ToLower(indicator.Label), query) {
			out = append(out, indicator)
		}
	}
	return out
}

// FindIndicator looks a catalogue row up by code.
func FindIndicator(catalogue []model.Indicator, code string) (model.Indicator, bool) {
	code = strings.TrimSpace(code)
	for _, indicator := range catalogue {
		if strings.EqualFold(indicator.Code, code) {
			return indicator, true
		}
	}
	return model.Indicator{}, false
}
