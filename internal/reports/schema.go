package reports

// FieldType controls how a raw value is coerced into a row field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldNumber
	FieldDuration
	FieldDate
)

// FieldSpec resolves one canonical field from an ordered list of accessor
// paths. The first non-empty path wins.
type FieldSpec struct {
	Name       string
	Type       FieldType
	Paths      []string
	Searchable bool
}

// Schema describes how a raw payload of one kind maps onto Row.
type Schema struct {
	Kind        Kind
	IDPaths     []string
	StatusPaths []string
	DatePaths   []string
	Fields      []FieldSpec
	// ValueField is summed into Statistics.TotalValue when set.
	ValueField string
	// DueField is classified against the normalizer clock when set.
	DueField string
}

func str(name string, searchable bool, paths ...string) FieldSpec {
	return FieldSpec{Name: name, Type: FieldString, Paths: paths, Searchable: searchable}
}

func num(name string, paths ...string) FieldSpec {
	return FieldSpec{Name: name, Type: FieldNumber, Paths: paths}
}

func dur(name string, paths ...string) FieldSpec {
	return FieldSpec{Name: name, Type: FieldDuration, Paths: paths}
}

func date(name string, paths ...string) FieldSpec {
	return FieldSpec{Name: name, Type: FieldDate, Paths: paths}
}

var schemas = map[Kind]Schema{
	KindLoad: {
		Kind:        KindLoad,
		IDPaths:     []string{"_id", "loadId._id", "loadId", "id"},
		StatusPaths: []string{"status", "bidStatus", "loadId.status"},
		DatePaths:   []string{"createdAt", "loadId.createdAt", "date", "updatedAt"},
		Fields: []FieldSpec{
			str("shipmentNumber", true, "shipmentNumber", "loadId.shipmentNumber", "loadNumber"),
			str("shipperName", true, "shipper.compName", "shipperId.compName", "loadId.shipper.compName", "shipperName"),
			str("carrierName", true, "carrier.compName", "carrierId.compName", "carrierName", "truckerName"),
			str("origin", true, "origins.0.city", "origin.city", "loadId.origins.0.city", "pickupLocation"),
			str("destination", true, "destinations.0.city", "destination.city", "loadId.destinations.0.city", "deliveryLocation"),
			num("rate", "rate", "rateDetails.totalRates", "totalRate", "loadId.rate"),
			str("vehicleType", false, "vehicleType", "loadId.vehicleType", "loadType"),
			num("weight", "weight", "loadId.weight"),
		},
		ValueField: "rate",
	},
	KindDeliveryOrder: {
		Kind:        KindDeliveryOrder,
		IDPaths:     []string{"_id", "doId", "doNumber", "id"},
		StatusPaths: []string{"status", "doStatus", "loadStatus"},
		DatePaths:   []string{"createdAt", "date", "loadDate"},
		Fields: []FieldSpec{
			str("doNumber", true, "doNumber", "doNum", "loadReference"),
			str("customerName", true, "customers.0.billTo", "customer.compName", "customerId.compName", "customerName"),
			str("carrierName", true, "carrier.carrierName", "carrier.compName", "carrierId.compName", "carrierName"),
			str("shipperName", true, "shipper.name", "shipper.compName", "shipperId.compName", "shipperName"),
			str("billTo", false, "customers.0.billTo", "billTo"),
			str("loadReference", true, "customers.0.loadNo", "loadReference", "loadNo"),
			num("billingAmount", "customers.0.totalAmount", "billingAmount", "totalAmount"),
			num("carrierFees", "carrier.totalCarrierFees", "carrierFees"),
		},
	},
	KindCall: {
		Kind:        KindCall,
		IDPaths:     []string{"_id", "callId", "call_id", "id"},
		StatusPaths: []string{"status", "callStatus", "disposition"},
		DatePaths:   []string{"callDate", "startTime", "createdAt", "date"},
		Fields: []FieldSpec{
			str("callerName", true, "callerName", "caller.name", "from"),
			str("employeeName", true, "employee.name", "empId.employeeName", "employeeName", "agentName"),
			str("phoneNumber", true, "phoneNumber", "to", "callee"),
			str("direction", false, "direction", "callType"),
			dur("talkTime", "talkTime", "talk_time", "duration", "callDuration"),
			str("rawTalkTime", false, "talkTime", "talk_time", "duration", "callDuration"),
		},
		ValueField: "talkTime",
	},
	KindTargetCompletion: {
		Kind:        KindTargetCompletion,
		IDPaths:     []string{"_id", "employeeId", "empId", "id"},
		StatusPaths: []string{"status", "completionStatus"},
		DatePaths:   []string{"date", "reportDate", "createdAt"},
		Fields: []FieldSpec{
			str("employeeName", true, "employeeName", "employee.name", "empName", "name"),
			str("department", true, "department", "dept"),
			dur("targetTime", "targetTime", "target.time", "targetHours"),
			dur("actualTime", "actualTime", "actual.time", "totalTalkTime", "actualHours"),
			num("completionRate", "completionRate", "completionPercentage", "percentage"),
		},
		ValueField: "actualTime",
	},
	KindFollowUp: {
		Kind:        KindFollowUp,
		IDPaths:     []string{"_id", "followUpId", "id"},
		StatusPaths: []string{"status", "followUpStatus"},
		DatePaths:   []string{"followUpDate", "createdAt", "date"},
		Fields: []FieldSpec{
			str("customerName", true, "customerName", "customer.compName", "customerId.compName", "companyName"),
			str("contactPerson", true, "contactPerson", "contactName", "customer.contactName"),
			str("followUpType", true, "followUpType", "type"),
			str("remarks", false, "remarks", "notes"),
			str("employeeName", true, "employeeName", "createdBy.employeeName", "empName"),
			date("nextFollowUpDate", "nextFollowUpDate", "dueDate", "followUpDue"),
		},
		DueField: "nextFollowUpDate",
	},
	KindCustomerAdded: {
		Kind:        KindCustomerAdded,
		IDPaths:     []string{"_id", "customerId", "id"},
		StatusPaths: []string{"status", "customerStatus"},
		DatePaths:   []string{"createdAt", "addedOn", "date"},
		Fields: []FieldSpec{
			str("companyName", true, "compName", "companyName", "customerName"),
			str("contactName", true, "contactName", "contactPerson", "compContact"),
			str("email", true, "email", "compEmail"),
			str("phone", false, "phone", "mobile", "compPhone"),
			str("city", true, "city", "address.city", "compAdd.city"),
			str("addedBy", true, "addedBy.employeeName", "addedBy.name", "addedBy", "createdBy"),
		},
	},
}

func schemaFor(kind Kind) Schema {
	return schemas[kind]
}

// SchemaFor returns the schema for kind.
func SchemaFor(kind Kind) (Schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return Schema{}, ErrUnknownKind
	}
	return s, nil
}

// SearchFields lists the field names searched for kind, after the id.
func SearchFields(kind Kind) []string {
	var names []string
	for _, f := range schemaFor(kind).Fields {
		if f.Searchable {
			names = append(names, f.Name)
		}
	}
	return names
}
