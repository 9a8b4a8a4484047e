package service

import (
	"sort"

	"hrp_projects/internal/domain"
)

type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionNoop   ActionKind = "unchanged"
	ActionDelete ActionKind = "delete"
)

// Action is one decision of the reconciler. For updates Dataset is the
// existing package with its resources replaced; for deletes it is the
// existing package.
type Action struct {
	Kind      ActionKind
	DatasetID string
	Dataset   domain.Dataset
}

// Reconcile compares desired datasets with the packages already on the
// portal. Create, update and no-op actions follow the order of desired;
// deletes for packages nobody wants any more come last, sorted by id.
func Reconcile(existing map[string]domain.Dataset, desired []domain.Dataset) []Action {
	actions := make([]Action, 0, len(desired)+len(existing))
	wanted := make(map[string]struct{}, len(desired))

	for _, ds := range desired {
		if _, dup := wanted[ds.Name]; dup {
			continue
		}
		wanted[ds.Name] = struct{}{}

		current, ok := existing[ds.Name]
		if !ok {
			actions = append(actions, Action{Kind: ActionCreate, DatasetID: ds.Name, Dataset: ds})
			continue
		}

		if sameURLs(current.ResourceURLs(), ds.ResourceURLs()) {
			actions = append(actions, Action{Kind: ActionNoop, DatasetID: ds.Name, Dataset: current})
			continue
		}

		updated := current
		updated.Resources = append([]domain.Resource(nil), ds.Resources...)
		actions = append(actions, Action{Kind: ActionUpdate, DatasetID: ds.Name, Dataset: updated})
	}

	var stale []string
	for id := range existing {
		if _, ok := wanted[id]; !ok {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	for _, id := range stale {
		actions = append(actions, Action{Kind: ActionDelete, DatasetID: id, Dataset: existing[id]})
	}

	return actions
}

func sameURLs(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for u := range a {
		if _, ok := b[u]; !ok {
			return false
		}
	}
	return true
}
