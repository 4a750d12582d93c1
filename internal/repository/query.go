package repository

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sakif/buddy-system/internal/model"
)

// AnimalSort names the key GET /animals orders by.
type AnimalSort string

const (
	SortByName       AnimalSort = "name"
	SortByAge        AnimalSort = "age"
	SortByIntakeDate AnimalSort = "intake_date"
)

// ParseAnimalSort validates a ?sort= value. Empty means SortByName.
func ParseAnimalSort(s string) (AnimalSort, error) {
	switch AnimalSort(s) {
	case "":
		return SortByName, nil
	case SortByName, SortByAge, SortByIntakeDate:
		return AnimalSort(s), nil
	default:
		return "", fmt.Errorf("sort must be one of name, age, intake_date (got %q)", s)
	}
}

// AnimalQuery describes an animal listing.
//
// It is applied in memory over the full set of animals, in the order the
// backend fetched them (creation order). Both date bounds are inclusive and
// either may be nil.
type AnimalQuery struct {
	Sort         AnimalSort
	IntakeAfter  *model.Date
	IntakeBefore *model.Date
}

// Apply filters all by the intake bounds and then sorts it stably, so animals
// with equal keys keep their fetch order. all is not modified.
func (q AnimalQuery) Apply(all []model.Animal) []model.Animal {
	out := make([]model.Animal, 0, len(all))
	for _, a := range all {
		if q.IntakeAfter != nil && a.IntakeDate.Compare(*q.IntakeAfter) < 0 {
			continue
		}
		if q.IntakeBefore != nil && a.IntakeDate.Compare(*q.IntakeBefore) > 0 {
			continue
		}
		out = append(out, a)
	}

	slices.SortStableFunc(out, q.compare)
	return out
}

func (q AnimalQuery) compare(a, b model.Animal) int {
	switch q.Sort {
	case SortByAge:
		return cmp.Compare(a.Age, b.Age)
	case SortByIntakeDate:
		return a.IntakeDate.Compare(b.IntakeDate)
	default:
		return cmp.Compare(a.Name, b.Name)
	}
}
