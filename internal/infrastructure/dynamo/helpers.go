package dynamo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is a rendered UpdateExpression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts field->value pairs into a SET clause and the given
// attribute names into a REMOVE clause. Fields are sorted so the output is deterministic.
func buildUpdateExpr(set map[string]interface{}, remove ...string) (updateExpr, error) {
	ue := updateExpr{
		Names:  make(map[string]string),
		Values: make(map[string]types.AttributeValue),
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	i := 0
	var setParts, removeParts []string
	for _, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(set[k])
		if err != nil {
			return updateExpr{}, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		setParts = append(setParts, nameKey+" = "+valueKey)
		i++
	}
	removeSorted := append([]string(nil), remove...)
	sort.Strings(removeSorted)
	for _, k := range removeSorted {
		nameKey := fmt.Sprintf("#f%d", i)
		ue.Names[nameKey] = k
		removeParts = append(removeParts, nameKey)
		i++
	}
	if i == 0 {
		return updateExpr{}, fmt.Errorf("no fields to update")
	}

	var clauses []string
	if len(setParts) > 0 {
		clauses = append(clauses, "SET "+strings.Join(setParts, ", "))
	}
	if len(removeParts) > 0 {
		clauses = append(clauses, "REMOVE "+strings.Join(removeParts, ", "))
	}
	ue.Expr = strings.Join(clauses, " ")
	if len(ue.Values) == 0 {
		ue.Values = nil
	}
	return ue, nil
}
