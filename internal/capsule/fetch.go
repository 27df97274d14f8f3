package capsule

import (
	"context"

	"github.com/bruno-ribeirodasilva/ariadne-dbt/internal/types"
)

// fetchFull loads the pivot tier: full model context, including compiled
// SQL and every column.
func (b *Builder) fetchFull(ctx context.Context, ids []string) ([]types.FullModelContext, error) {
	var out []types.FullModelContext
	for _, id := range ids {
		m, err := b.Search.GetModelByID(ctx, id)
		if err != nil {
			continue // a pivot that vanished between resolution and fetch is dropped, not fatal
		}
		dependsOn, err := b.Search.GetDependsOn(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, types.FullModelContext{
			ID: m.ID, Name: m.Name, Layer: m.Layer, Description: m.Description,
			Materialized: m.Materialized, FilePath: m.Path, Columns: m.Columns,
			CompiledSQL: m.CompiledSQL, Tags: m.Tags, DependsOn: dependsOn,
		})
	}
	return out, nil
}

// fetchSkeleton loads the upstream tier: schema-only name+type pairs.
func (b *Builder) fetchSkeleton(ctx context.Context, ids []string) ([]types.SkeletonModelContext, error) {
	var out []types.SkeletonModelContext
	for _, id := range ids {
		m, err := b.Search.GetModelByID(ctx, id)
		if err != nil {
			continue
		}
		cols := make([]types.SkeletonColumn, len(m.Columns))
		for i, c := range m.Columns {
			cols[i] = types.SkeletonColumn{Name: c.Name, DataType: c.DataType}
		}
		out = append(out, types.SkeletonModelContext{ID: m.ID, Name: m.Name, Layer: m.Layer, Columns: cols})
	}
	return out, nil
}

// fetchMinimal loads the downstream tier: name, column count, and up to
// five key (PK/FK) columns.
func (b *Builder) fetchMinimal(ctx context.Context, ids []string) ([]types.MinimalModelContext, error) {
	var out []types.MinimalModelContext
	for _, id := range ids {
		m, err := b.Search.GetModelByID(ctx, id)
		if err != nil {
			continue
		}
		var keyCols []types.SkeletonColumn
		for _, c := range m.Columns {
			if c.IsPrimaryKey || c.IsForeignKey {
				keyCols = append(keyCols, types.SkeletonColumn{
					Name: c.Name, DataType: c.DataType, IsPrimaryKey: c.IsPrimaryKey, IsForeignKey: c.IsForeignKey,
				})
			}
			if len(keyCols) >= 5 {
				break
			}
		}
		out = append(out, types.MinimalModelContext{
			ID: m.ID, Name: m.Name, Layer: m.Layer, ColumnCount: len(m.Columns), KeyColumns: keyCols,
		})
	}
	return out, nil
}

// collectTestsAndMacros gathers tests and macros for the pivot set only —
// upstream and downstream models only carry their schema, not their tests
// or macro usage.
func (b *Builder) collectTestsAndMacros(ctx context.Context, pivotIDs []string) ([]types.Test, []types.Macro, error) {
	var tests []types.Test
	var macros []types.Macro
	seenMacro := map[string]bool{}
	for _, id := range pivotIDs {
		t, err := b.Search.GetTestsForModel(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		tests = append(tests, t...)

		m, err := b.Search.GetMacrosForModel(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		for _, macro := range m {
			if !seenMacro[macro.ID] {
				seenMacro[macro.ID] = true
				macros = append(macros, macro)
			}
		}
	}
	return tests, macros, nil
}

// collectSources gathers the immediate-upstream sources of the pivot set,
// deduplicated by source id across pivots.
func (b *Builder) collectSources(ctx context.Context, pivotIDs []string) ([]types.Source, error) {
	var sources []types.Source
	seen := map[string]bool{}
	for _, id := range pivotIDs {
		s, err := b.Search.GetSourcesForModel(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, src := range s {
			if !seen[src.ID] {
				seen[src.ID] = true
				sources = append(sources, src)
			}
		}
	}
	return sources, nil
}
