package database

type BaseModel interface {
	ParseModel() any
}
