package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/zester4/fixium/engine/domain"
)

// SaveGuide writes one completed repair guide into the graph: a Guide node
// linked to its Device, the Damage nodes it addressed and the Parts and
// Tools it needed. Damage, Part and Tool nodes are shared across guides so
// frequency queries work.
func (g *GraphStore) SaveGuide(ctx context.Context, guide domain.RepairGuide) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (d:Device {category: $category})
			MERGE (g:Guide {id: $id})
			SET g.model = $model, g.condition = $condition,
			    g.difficulty = $difficulty, g.repairability = $repairability,
			    g.confidence = $confidence, g.steps = $steps, g.created_at = $createdAt
			MERGE (g)-[:FOR_DEVICE]->(d)`,
			map[string]any{
				"category":      string(guide.DeviceInfo.Category),
				"id":            guide.ID,
				"model":         guide.DeviceInfo.Model,
				"condition":     guide.DeviceInfo.Condition,
				"difficulty":    string(guide.Diagnosis.Difficulty),
				"repairability": string(guide.Diagnosis.Repairability),
				"confidence":    guide.Diagnosis.Confidence,
				"steps":         len(guide.Steps),
				"createdAt":     guide.CreatedAt,
			},
		); err != nil {
			return nil, fmt.Errorf("knowledge: save guide node: %w", err)
		}

		for _, dmg := range guide.Diagnosis.Damages {
			if _, err := tx.Run(ctx, `
				MATCH (g:Guide {id: $id}), (d:Device {category: $category})
				MERGE (dmg:Damage {type: $type})
				SET dmg.description = $description
				MERGE (dmg)-[o:OBSERVED_ON]->(d)
				ON CREATE SET o.count = 1
				ON MATCH SET o.count = o.count + 1
				MERGE (g)-[:ADDRESSES {severity: $severity}]->(dmg)`,
				map[string]any{
					"id":          guide.ID,
					"category":    string(guide.DeviceInfo.Category),
					"type":        normalizeKey(dmg.Type),
					"description": dmg.Description,
					"severity":    string(dmg.Severity),
				},
			); err != nil {
				return nil, fmt.Errorf("knowledge: save damage %q: %w", dmg.Type, err)
			}
		}

		for _, part := range guide.Parts {
			if _, err := tx.Run(ctx, `
				MATCH (g:Guide {id: $id})
				MERGE (p:Part {name: $name})
				SET p.part_number = $partNumber
				MERGE (g)-[:NEEDS_PART {required: $required}]->(p)`,
				map[string]any{
					"id":         guide.ID,
					"name":       normalizeKey(part.Name),
					"partNumber": part.PartNumber,
					"required":   part.IsRequired,
				},
			); err != nil {
				return nil, fmt.Errorf("knowledge: save part %q: %w", part.Name, err)
			}
		}

		for _, tool := range guide.Tools {
			if _, err := tx.Run(ctx, `
				MATCH (g:Guide {id: $id})
				MERGE (t:Tool {name: $name})
				MERGE (g)-[:NEEDS_TOOL {required: $required}]->(t)`,
				map[string]any{
					"id":       guide.ID,
					"name":     normalizeKey(tool.Name),
					"required": tool.IsRequired,
				},
			); err != nil {
				return nil, fmt.Errorf("knowledge: save tool %q: %w", tool.Name, err)
			}
		}
		return nil, nil
	})
	return err
}

// CommonIssues returns the most frequently observed damage types for a
// device category, most common first. Satisfies the diagnosis pipeline's
// issue lookup.
func (g *GraphStore) CommonIssues(ctx context.Context, category domain.DeviceCategory, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `
		MATCH (dmg:Damage)-[o:OBSERVED_ON]->(d:Device {category: $category})
		RETURN dmg.type AS type, dmg.description AS description, o.count AS count
		ORDER BY o.count DESC
		LIMIT $limit`,
		map[string]any{"category": string(category), "limit": limit},
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge: common issues: %w", err)
	}

	var issues []string
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		count, _ := rec.Get("count")
		t, ok := typ.(string)
		if !ok {
			continue
		}
		if c, ok := count.(int64); ok && c > 1 {
			issues = append(issues, fmt.Sprintf("%s (seen in %d past repairs)", t, c))
		} else {
			issues = append(issues, t)
		}
	}
	return issues, result.Err()
}

// PartsForDamage returns part names previously used by guides addressing the
// given damage type on the given category.
func (g *GraphStore) PartsForDamage(ctx context.Context, category domain.DeviceCategory, damageType string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `
		MATCH (gd:Guide)-[:FOR_DEVICE]->(:Device {category: $category}),
		      (gd)-[:ADDRESSES]->(:Damage {type: $type}),
		      (gd)-[:NEEDS_PART]->(p:Part)
		RETURN p.name AS name, count(*) AS uses
		ORDER BY uses DESC
		LIMIT $limit`,
		map[string]any{
			"category": string(category),
			"type":     normalizeKey(damageType),
			"limit":    limit,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge: parts for damage: %w", err)
	}

	var names []string
	for result.Next(ctx) {
		if name, ok := result.Record().Get("name"); ok {
			if s, ok := name.(string); ok {
				names = append(names, s)
			}
		}
	}
	return names, result.Err()
}

// NodeCounts returns node counts grouped by label.
func (g *GraphStore) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n) RETURN labels(n)[0] AS label, count(*) AS count`, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge: node counts: %w", err)
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		label, _ := rec.Get("label")
		count, _ := rec.Get("count")
		if l, ok := label.(string); ok {
			if c, ok := count.(int64); ok {
				counts[l] = c
			}
		}
	}
	return counts, result.Err()
}

// normalizeKey lowercases and collapses whitespace so "Cracked Screen" and
// "cracked  screen" merge into one node.
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
