package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/graph"
)

// Neo4jRepository implements graph.Repository using Neo4j. Every node
// carries the run id so several runs can share one database.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed repository.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

// fileRows lists every node of g; graph keys carry their position.
func fileRows(g *depgraph.Graph) []map[string]any {
	rows := make([]map[string]any, 0, g.Len())
	for i, n := range g.Nodes() {
		row := map[string]any{"path": n, "modeled": g.Has(n)}
		if g.Has(n) {
			row["pos"] = i
		}
		rows = append(rows, row)
	}
	return rows
}

// edgeRows lists every edge with its position in the source's list.
func edgeRows(g *depgraph.Graph) []map[string]any {
	rows := make([]map[string]any, 0, g.EdgeCount())
	g.Each(func(file string, deps []string) {
		for i, d := range deps {
			rows = append(rows, map[string]any{"from": file, "to": d, "pos": i})
		}
	})
	return rows
}

// communityRows lists the communities of a snapshot with their metrics
// serialized as JSON properties.
func communityRows(s graph.Snapshot) ([]map[string]any, error) {
	rows := make([]map[string]any, 0, s.Partition.Len())
	for i, id := range s.Partition.IDs() {
		row := map[string]any{
			"id":      id,
			"pos":     i,
			"members": s.Partition.Members(id),
		}
		if s.Report != nil {
			if m := s.Report.Community(id); m != nil {
				data, err := json.Marshal(m)
				if err != nil {
					return nil, fmt.Errorf("encode metrics of %q: %w", id, err)
				}
				row["outerImports"] = m.OuterImports
				row["outerExports"] = m.OuterExports
				row["metrics"] = string(data)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *Neo4jRepository) StoreGraph(ctx context.Context, run graph.Run, g *depgraph.Graph) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			"MERGE (r:Run {id: $id}) SET r.createdAt = $created, r.files = $files, r.edges = $edges",
			map[string]any{"id": run.ID, "created": run.CreatedAt, "files": run.Files, "edges": run.Edges}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx,
			"UNWIND $rows AS row "+
				"MERGE (f:File {run: $run, path: row.path}) "+
				"SET f.modeled = row.modeled, f.pos = row.pos "+
				"WITH f MATCH (r:Run {id: $run}) MERGE (r)-[:HAS_FILE]->(f)",
			map[string]any{"run": run.ID, "rows": fileRows(g)}); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx,
			"UNWIND $rows AS row "+
				"MATCH (a:File {run: $run, path: row.from}) "+
				"MATCH (b:File {run: $run, path: row.to}) "+
				"CREATE (a)-[:IMPORTS {pos: row.pos}]->(b)",
			map[string]any{"run": run.ID, "rows": edgeRows(g)})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("store graph %s: %w", run.ID, err)
	}
	return nil
}

func (r *Neo4jRepository) StoreSnapshot(ctx context.Context, s graph.Snapshot) error {
	rows, err := communityRows(s)
	if err != nil {
		return err
	}
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"run": s.RunID, "strategy": s.Strategy, "rows": rows, "relocated": s.Relocated, "connections": nil}
		if s.Report != nil {
			params["connections"] = s.Report.Summary.OuterConnections
		}
		if _, err := tx.Run(ctx,
			"MATCH (r:Run {id: $run}) "+
				"MERGE (p:Partition {run: $run, strategy: $strategy}) "+
				"SET p.outerConnections = $connections, p.relocated = $relocated "+
				"MERGE (r)-[:HAS_PARTITION]->(p)",
			params); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx,
			"MATCH (p:Partition {run: $run, strategy: $strategy}) "+
				"UNWIND $rows AS row "+
				"MERGE (c:Community {run: $run, strategy: $strategy, id: row.id}) "+
				"SET c.pos = row.pos, c.outerImports = row.outerImports, c.outerExports = row.outerExports, c.metrics = row.metrics "+
				"MERGE (p)-[:HAS_COMMUNITY]->(c) "+
				"WITH c, row UNWIND range(0, size(row.members) - 1) AS i "+
				"MERGE (f:File {run: $run, path: row.members[i]}) "+
				"MERGE (c)-[m:CONTAINS]->(f) SET m.pos = i",
			params)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("store %s snapshot: %w", s.Strategy, err)
	}
	return nil
}

type orderedDep struct {
	path string
	pos  int64
}

func (r *Neo4jRepository) LoadGraph(ctx context.Context, runID string) (*depgraph.Graph, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (f:File {run: $run, modeled: true}) "+
				"OPTIONAL MATCH (f)-[i:IMPORTS]->(d:File) "+
				"RETURN f.path AS path, f.pos AS pos, collect([d.path, i.pos]) AS deps ORDER BY pos",
			map[string]any{"run": runID})
		if err != nil {
			return nil, err
		}

		g := depgraph.New()
		for records.Next(ctx) {
			rec := records.Record()
			path, _ := rec.Get("path")
			raw, _ := rec.Get("deps")
			var deps []orderedDep
			for _, item := range raw.([]any) {
				pair := item.([]any)
				if pair[0] == nil {
					continue
				}
				deps = append(deps, orderedDep{path: pair[0].(string), pos: pair[1].(int64)})
			}
			sort.Slice(deps, func(a, b int) bool { return deps[a].pos < deps[b].pos })
			targets := make([]string, len(deps))
			for k, d := range deps {
				targets[k] = d.path
			}
			g.Set(path.(string), targets...)
		}
		if err := records.Err(); err != nil {
			return nil, err
		}
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	g := result.(*depgraph.Graph)
	if g.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", graph.ErrRunNotFound, runID)
	}
	return g, nil
}

func (r *Neo4jRepository) LoadPartition(ctx context.Context, runID, strategy string) (*community.Partition, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (:Partition {run: $run, strategy: $strategy})-[:HAS_COMMUNITY]->(c:Community) "+
				"OPTIONAL MATCH (c)-[m:CONTAINS]->(f:File) "+
				"WITH c, f, m ORDER BY c.pos, m.pos "+
				"RETURN c.id AS id, collect(f.path) AS files ORDER BY c.pos",
			map[string]any{"run": runID, "strategy": strategy})
		if err != nil {
			return nil, err
		}
		p := community.New()
		found := false
		for records.Next(ctx) {
			found = true
			rec := records.Record()
			id, _ := rec.Get("id")
			files, _ := rec.Get("files")
			members := make([]string, 0, len(files.([]any)))
			for _, f := range files.([]any) {
				members = append(members, f.(string))
			}
			if err := p.Replace(id.(string), members); err != nil {
				return nil, err
			}
		}
		if err := records.Err(); err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: %s/%s", graph.ErrRunNotFound, runID, strategy)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*community.Partition), nil
}

func (r *Neo4jRepository) QueryDependents(ctx context.Context, runID, file string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (src:File {run: $run})-[:IMPORTS]->(:File {run: $run, path: $path}) "+
				"RETURN DISTINCT src.path AS path, src.pos AS pos ORDER BY pos",
			map[string]any{"run": runID, "path": file})
		if err != nil {
			return nil, err
		}
		var names []string
		for records.Next(ctx) {
			n, _ := records.Record().Get("path")
			names = append(names, n.(string))
		}
		return names, records.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

var _ graph.Repository = (*Neo4jRepository)(nil)
