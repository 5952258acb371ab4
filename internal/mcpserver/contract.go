package mcpserver

// ItemFormatContract describes the board item JSON that list_items returns
// and update_item accepts.
const ItemFormatContract = `# Corkboard Item Format

Every item is a flat JSON object. Common fields:

` + "```" + `json
{
  "id": "01J...",                       // unique on the board
  "type": "NOTE",                       // NOTE | TASK | GROUP | EXPENSE_WIDGET
  "position": {"x": 100, "y": 100},     // world units, top-left corner
  "size": {"width": 240, "height": 240},
  "zIndex": 3,                          // higher draws on top; groups are always 0
  "groupId": "01J..."                   // optional, id of the containing group
}
` + "```" + `

## Fields per type

| type | fields |
|---|---|
| NOTE | content, color |
| TASK | title, description, deadline, priority (Low, Medium, High, Urgent), completed, assignee |
| GROUP | title, color |
| EXPENSE_WIDGET | title, expenses |

An expense is ` + "`" + `{"id", "description", "amount", "date" (YYYY-MM-DD), "category"}` + "`" + `
with a non-negative numeric amount. Expenses are kept newest first.

## Rules

1. **The type never changes.** update_item rejects a different type and any field
   that does not belong to the item's type.
2. **Groups are not nested.** A group has no groupId and always sits behind other items.
3. **Membership follows position.** After move_item, an item whose centre lies inside a
   group joins it (the first such group in list order); outside every group it leaves.
4. **Moving a group moves its members** by the same delta.
5. **Deleting a group** keeps its members and clears their groupId.
6. **Sizes are positive.**
`
