package neo4j

import (
	"fmt"
	"regexp"
	"strings"
)

var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// quote returns name as a backtick-quoted Cypher identifier. Labels and
// relationship types cannot be query parameters, so only plain identifiers
// are accepted.
func quote(name string) (string, error) {
	if !identifier.MatchString(name) {
		return "", fmt.Errorf("invalid cypher identifier %q", name)
	}
	return "`" + name + "`", nil
}

func constraintName(label string) string {
	return "graphmerge_" + strings.ToLower(label) + "_stable_id"
}

func constraintQuery(label string) (string, error) {
	l, err := quote(label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.stable_id IS UNIQUE",
		constraintName(label), l), nil
}

func getNodeQuery(label string) (string, error) {
	l, err := quote(label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH (n:%s {stable_id: $id}) RETURN properties(n) AS props LIMIT 1", l), nil
}

func createNodeQuery(label string) (string, error) {
	l, err := quote(label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE (n:%s) SET n = $props", l), nil
}

func setPropertiesQuery(label string) (string, error) {
	l, err := quote(label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH (n:%s {stable_id: $id}) SET n += $props RETURN count(n) AS matched", l), nil
}

func edgePattern(relType, fromLabel, toLabel string) (string, error) {
	t, err := quote(relType)
	if err != nil {
		return "", err
	}
	from, err := quote(fromLabel)
	if err != nil {
		return "", err
	}
	to, err := quote(toLabel)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH (a:%s {stable_id: $from}), (b:%s {stable_id: $to})", from, to) +
		fmt.Sprintf("\nOPTIONAL MATCH (a)-[r:%s]->(b)", t), nil
}

func hasEdgeQuery(relType, fromLabel, toLabel string) (string, error) {
	match, err := edgePattern(relType, fromLabel, toLabel)
	if err != nil {
		return "", err
	}
	return match + "\nRETURN count(r) > 0 AS found", nil
}

func createEdgeQuery(relType, fromLabel, toLabel string) (string, error) {
	t, err := quote(relType)
	if err != nil {
		return "", err
	}
	from, err := quote(fromLabel)
	if err != nil {
		return "", err
	}
	to, err := quote(toLabel)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`MATCH (a:%s {stable_id: $from})
MATCH (b:%s {stable_id: $to})
MERGE (a)-[r:%s]->(b)
ON CREATE SET r = $props
RETURN count(r) AS matched`, from, to, t), nil
}
