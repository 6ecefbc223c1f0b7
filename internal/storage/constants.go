package storage

// RemoveAll requests an unlimited removal: the extracted quantity is
// capped only by the stack present and the item's own per-stack ceiling.
const RemoveAll = -1

// ItemsFieldName is the named field the structured persistence form
// writes the slot list under.
const ItemsFieldName = "Items"
