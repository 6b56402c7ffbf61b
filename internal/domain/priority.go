package domain

// Приоритеты источников, меньше - надёжнее
const (
	PriorityVerified     = 1
	PriorityOSM          = 2
	PriorityGooglePlaces = 3
	// PriorityReliefBase - приоритет первой relief ленты, следующие по порядку конфигурации
	PriorityReliefBase = 4
)

const BadgeVerified = "Verified"

// Ranking назначает приоритет и бейдж по источнику
type Ranking struct {
	reliefFeeds map[Source]int
}

// NewRanking - reliefFeeds в порядке конфигурации
func NewRanking(reliefFeeds []string) Ranking {
	feeds := make(map[Source]int, len(reliefFeeds))
	for i, name := range reliefFeeds {
		if _, ok := feeds[Source(name)]; !ok {
			feeds[Source(name)] = PriorityReliefBase + i
		}
	}
	return Ranking{reliefFeeds: feeds}
}

// Priority возвращает приоритет источника, неизвестные источники идут последними
func (r Ranking) Priority(source Source) int {
	switch source {
	case SourceManual:
		return PriorityVerified
	case SourceOSM:
		return PriorityOSM
	case SourceGooglePlaces:
		return PriorityGooglePlaces
	}
	if p, ok := r.reliefFeeds[source]; ok {
		return p
	}
	return PriorityReliefBase + len(r.reliefFeeds)
}

func (r Ranking) Badge(source Source) string {
	if source == SourceManual {
		return BadgeVerified
	}
	return string(source)
}

// Apply проставляет приоритет и бейдж
func (r Ranking) Apply(s *Service) {
	s.Priority = r.Priority(s.Source)
	s.Badge = r.Badge(s.Source)
}
