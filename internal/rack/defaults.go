package rack

import (
	"context"

	"github.com/mesh-intelligence/shoerack/internal/registry"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// SetDefaultShoe makes the shoe the default for cats, taking those
// categories away from any other shoe. A retired shoe is reinstated.
func (r *Rack) SetDefaultShoe(ctx context.Context, id string, cats []types.RunCategory, mode types.DefaultMode) (*types.Shoe, error) {
	return r.mutate(ctx, id, func(working []*types.Shoe) ([]*types.Shoe, []string, []types.Event, error) {
		if _, err := r.usableIn(working, id); err != nil {
			return nil, nil, nil, err
		}
		touched, err := registry.SetDefault(working, id, cats, mode, r.now())
		if err != nil {
			return nil, nil, nil, err
		}
		events := make([]types.Event, 0, len(touched))
		for _, t := range touched {
			ev := types.Event{Type: types.EventDefaultsChanged, ShoeID: t}
			if t == id {
				ev.Categories = append([]types.RunCategory{}, registry.Find(working, id).DefaultRunTypes...)
			}
			events = append(events, ev)
		}
		return working, touched, events, nil
	})
}

// ClearDefaultShoe removes cats from the shoe's default categories, or all
// of them when cats is empty. The categories are left without a default.
func (r *Rack) ClearDefaultShoe(ctx context.Context, id string, cats []types.RunCategory) (*types.Shoe, error) {
	return r.mutate(ctx, id, func(working []*types.Shoe) ([]*types.Shoe, []string, []types.Event, error) {
		if _, err := r.usableIn(working, id); err != nil {
			return nil, nil, nil, err
		}
		touched, err := registry.ClearDefault(working, id, cats, r.now())
		if err != nil {
			return nil, nil, nil, err
		}
		var events []types.Event
		if len(touched) > 0 {
			events = append(events, types.Event{Type: types.EventDefaultsChanged, ShoeID: id})
		}
		return working, touched, events, nil
	})
}

// RetireShoe toggles the retired flag. Retiring drops every default the
// shoe held without choosing a replacement. Restricted shoes may be
// retired.
func (r *Rack) RetireShoe(ctx context.Context, id string) (*types.Shoe, error) {
	return r.mutate(ctx, id, func(working []*types.Shoe) ([]*types.Shoe, []string, []types.Event, error) {
		retired, cleared, err := registry.Retire(working, id, r.now())
		if err != nil {
			return nil, nil, nil, err
		}
		ev := types.Event{Type: types.EventShoeReinstated, ShoeID: id}
		if retired {
			ev = types.Event{Type: types.EventShoeRetired, ShoeID: id, Categories: cleared}
		}
		return working, []string{id}, []types.Event{ev}, nil
	})
}

// SetSuitableRunTypes replaces the categories the shoe is suitable for.
func (r *Rack) SetSuitableRunTypes(ctx context.Context, id string, cats []types.RunCategory) (*types.Shoe, error) {
	return r.mutate(ctx, id, func(working []*types.Shoe) ([]*types.Shoe, []string, []types.Event, error) {
		if _, err := r.usableIn(working, id); err != nil {
			return nil, nil, nil, err
		}
		if err := registry.SetSuitable(working, id, cats, r.now()); err != nil {
			return nil, nil, nil, err
		}
		ev := types.Event{
			Type:       types.EventSuitableChanged,
			ShoeID:     id,
			Categories: append([]types.RunCategory{}, registry.Find(working, id).SuitableRunTypes...),
		}
		return working, []string{id}, []types.Event{ev}, nil
	})
}
