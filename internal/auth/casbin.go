package auth

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// DefaultModel is the RBAC model used when no model file is configured.
// Objects are relay facilities, matched with keyMatch so "*" covers all of
// them; the only action is "publish".
const DefaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && r.act == p.act
`

// ActionPublish is the action checked before relaying a client message.
const ActionPublish = "publish"

// NewModel loads the model file at modelPath, or DefaultModel when the path
// is empty.
func NewModel(modelPath string) (model.Model, error) {
	if modelPath == "" {
		return model.NewModelFromString(DefaultModel)
	}
	return model.NewModelFromFile(modelPath)
}

// NewEnforcer creates and configures a new Casbin enforcer.
// It sets up the database adapter, loads the model, and loads all
// authorization policies from the database.
//
// Parameters:
//   - driverName: The name of the database driver (e.g., "mysql").
//   - dsn: The Data Source Name for the database connection.
//   - modelPath: The Casbin model file (`.conf`); empty selects DefaultModel.
func NewEnforcer(driverName, dsn, modelPath string) (*casbin.Enforcer, error) {
	m, err := NewModel(modelPath)
	if err != nil {
		return nil, err
	}

	opts := &sqlxadapter.AdapterOptions{
		DriverName:     driverName,
		DataSourceName: dsn,
		TableName:      "casbin_rule",
	}
	adapter := sqlxadapter.NewAdapterFromOptions(opts)

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	return enforcer, nil
}
