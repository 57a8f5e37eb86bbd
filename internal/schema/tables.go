package schema

// Table identifiers.
const (
	Clients            Table = "clients"
	Panels             Table = "panels"
	Apps               Table = "apps"
	ContactTypes       Table = "contact_types"
	PaymentMethods     Table = "payment_methods"
	PricingConfig      Table = "pricing_config"
	Questions          Table = "questions"
	SmartTVActivations Table = "smart_tv_activations"
	Settings           Table = "settings"
)

// Column identifiers.
const (
	ColID             Column = "id"
	ColUpdatedAt      Column = "updated_at"
	ColUsername       Column = "username"
	ColPassword       Column = "password"
	ColIsTrial        Column = "is_trial"
	ColExpDate        Column = "exp_date"
	ColMaxConnections Column = "max_connections"
	ColCreatedBy      Column = "created_by"
	ColBouquet        Column = "bouquet"
	ColNotes          Column = "notes"
	ColName           Column = "name"
	ColURL            Column = "url"
	ColPackageName    Column = "package_name"
	ColAppCode        Column = "app_code"
	ColPrice          Column = "price"
	ColCurrency       Column = "currency"
	ColQuestion       Column = "question"
	ColAnswer         Column = "answer"
	ColActivationID   Column = "activation_id"
	ColAppName        Column = "app_name"
	ColAppPrice       Column = "app_price"
	ColSettingKey     Column = "setting_key"
	ColSettingValue   Column = "setting_value"
)

// Client field limits.
const (
	MinUsernameLength = 3
	MinPasswordLength = 4
	MinConnections    = 1
	MaxConnections    = 100
)

func text(col Column) Field { return Field{Column: col, Kind: KindText} }

func required(col Column) Field { return Field{Column: col, Kind: KindText, MinLength: 1} }

// Default is the panel's allow-list.
var Default = NewRegistry(
	TableSpec{
		Name: Clients,
		Fields: []Field{
			{Column: ColUsername, Kind: KindText, MinLength: MinUsernameLength},
			{Column: ColPassword, Kind: KindText, MinLength: MinPasswordLength},
			{Column: ColIsTrial, Kind: KindBool},
			{Column: ColExpDate, Kind: KindDate},
			{Column: ColMaxConnections, Kind: KindInt, Min: MinConnections, Max: MaxConnections},
			text(ColCreatedBy),
			text(ColBouquet),
			text(ColNotes),
		},
		Deletable: true,
		Touch:     true,
	},
	TableSpec{
		Name:      Panels,
		Fields:    []Field{required(ColName), required(ColURL), text(ColUsername), text(ColPassword)},
		Deletable: true,
	},
	TableSpec{
		Name:      Apps,
		Fields:    []Field{required(ColName), text(ColPackageName), text(ColAppCode)},
		Deletable: true,
	},
	TableSpec{
		Name:      ContactTypes,
		Fields:    []Field{required(ColName)},
		Deletable: true,
	},
	TableSpec{
		Name:      PaymentMethods,
		Fields:    []Field{required(ColName)},
		Deletable: true,
	},
	TableSpec{
		Name:      PricingConfig,
		Fields:    []Field{required(ColName), {Column: ColPrice, Kind: KindDecimal}, text(ColCurrency)},
		Deletable: true,
		Touch:     true,
	},
	TableSpec{
		Name:      Questions,
		Fields:    []Field{required(ColQuestion), required(ColAnswer)},
		Deletable: true,
	},
	TableSpec{
		Name: SmartTVActivations,
		Fields: []Field{
			required(ColActivationID),
			text(ColAppName),
			{Column: ColAppPrice, Kind: KindDecimal},
			text(ColCurrency),
		},
		Deletable: true,
	},
	TableSpec{
		Name:        Settings,
		Fields:      []Field{text(ColSettingValue)},
		Touch:       true,
		FixedColumn: ColSettingValue,
	},
)
