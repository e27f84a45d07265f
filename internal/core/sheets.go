package core

func init() {
	registerProducts()
	registerCustomers()
	registerInvoices()
	registerBills()
	registerExchangeBills()
}

func registerProducts() {
	Register(SheetDefinition{
		Kind:      KindProducts,
		SheetName: "Products",
		Sentinel:  "No products found",
		Primary:   "name",
		Fields: []FieldSpec{
			{Header: "ID", Field: "id", Type: FieldText},
			{Header: "Product Name", Field: "name", Type: FieldText},
			{Header: "Category", Field: "category", Type: FieldText},
			{Header: "SKU", Field: "sku", Type: FieldText},
			{Header: "Barcode", Field: "barcode", Type: FieldText},
			{Header: "Weight (g)", Field: "weight", Type: FieldNumber},
			{Header: "Purity", Field: "purity", Type: FieldText},
			{Header: "Material Type", Field: "material_type", Type: FieldText},
			{Header: "Making Charge (₹)", Field: "making_charge", Type: FieldMoney},
			{Header: "Current Rate (₹/g)", Field: "current_rate", Type: FieldMoney},
			{Header: "Stock Quantity", Field: "stock_quantity", Type: FieldNumber},
			{Header: "Min Stock Level", Field: "min_stock_level", Type: FieldNumber},
			{Header: "Status", Field: "status", Type: FieldText},
			{Header: "Created At", Field: "created_at", Type: FieldDate},
			{Header: "Updated At", Field: "updated_at", Type: FieldDate},
		},
	})
}

func registerCustomers() {
	Register(SheetDefinition{
		Kind:      KindCustomers,
		SheetName: "Customers",
		Sentinel:  "No customers found",
		Primary:   "name",
		Fields: []FieldSpec{
			{Header: "ID", Field: "id", Type: FieldText},
			{Header: "Customer Name", Field: "name", Type: FieldText},
			{Header: "Phone", Field: "phone", Type: FieldText},
			{Header: "Email", Field: "email", Type: FieldText},
			{Header: "Address", Field: "address", Type: FieldText},
			{Header: "City", Field: "city", Type: FieldText},
			{Header: "State", Field: "state", Type: FieldText},
			{Header: "Pincode", Field: "pincode", Type: FieldText},
			{Header: "GST Number", Field: "gst_number", Type: FieldText},
			{Header: "Customer Type", Field: "customer_type", Type: FieldText},
			{Header: "Status", Field: "status", Type: FieldText},
			{Header: "Created At", Field: "created_at", Type: FieldDate},
			{Header: "Updated At", Field: "updated_at", Type: FieldDate},
		},
	})
}

// amountFields are the money columns shared by invoices and bills.
var amountFields = []FieldSpec{
	{Header: "Subtotal (₹)", Field: "subtotal", Type: FieldMoney},
	{Header: "Tax Percentage (%)", Field: "tax_percentage", Type: FieldNumber},
	{Header: "Tax Amount (₹)", Field: "tax_amount", Type: FieldMoney},
	{Header: "Discount Percentage (%)", Field: "discount_percentage", Type: FieldNumber},
	{Header: "Discount Amount (₹)", Field: "discount_amount", Type: FieldMoney},
	{Header: "Total Amount (₹)", Field: "total_amount", Type: FieldMoney},
	{Header: "Payment Method", Field: "payment_method", Type: FieldText},
	{Header: "Payment Status", Field: "payment_status", Type: FieldText},
	{Header: "Amount Paid (₹)", Field: "amount_paid", Type: FieldMoney},
}

var trailingFields = []FieldSpec{
	{Header: "Items", Field: "items", Type: FieldItems},
	{Header: "Created At", Field: "created_at", Type: FieldDate},
	{Header: "Updated At", Field: "updated_at", Type: FieldDate},
}

func concatFields(groups ...[]FieldSpec) []FieldSpec {
	var out []FieldSpec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func registerInvoices() {
	Register(SheetDefinition{
		Kind:      KindInvoices,
		SheetName: "Invoices",
		Sentinel:  "No invoices found",
		Primary:   "invoice_number",
		Fields: concatFields(
			[]FieldSpec{
				{Header: "ID", Field: "id", Type: FieldText},
				{Header: "Invoice Number", Field: "invoice_number", Type: FieldText},
				{Header: "Customer ID", Field: "customer_id", Type: FieldText},
				{Header: "Customer Name", Field: "customer_name", Type: FieldText},
				{Header: "Customer Phone", Field: "customer_phone", Type: FieldText},
			},
			amountFields,
			trailingFields,
		),
	})
}

var billHeadFields = []FieldSpec{
	{Header: "ID", Field: "id", Type: FieldText},
	{Header: "Bill Number", Field: "bill_number", Type: FieldText, Aliases: []string{"Invoice Number", "invoice_number"}},
	{Header: "Customer Name", Field: "customer_name", Type: FieldText},
	{Header: "Customer Phone", Field: "customer_phone", Type: FieldText},
}

func registerBills() {
	Register(SheetDefinition{
		Kind:      KindBills,
		SheetName: "Bills",
		Sentinel:  "No bills found",
		Primary:   "bill_number",
		Fields:    concatFields(billHeadFields, amountFields, trailingFields),
	})
}

func registerExchangeBills() {
	Register(SheetDefinition{
		Kind:      KindExchangeBills,
		SheetName: "Exchange Bills",
		Sentinel:  "No exchange bills found",
		Primary:   "bill_number",
		Fields: concatFields(
			billHeadFields,
			amountFields,
			[]FieldSpec{
				{Header: "Old Gold Weight (g)", Field: "old_gold_weight", Type: FieldNumber},
				{Header: "Old Gold Purity", Field: "old_gold_purity", Type: FieldText},
				{Header: "Old Gold Rate (₹/g)", Field: "old_gold_rate", Type: FieldMoney},
				{Header: "Old Gold Value (₹)", Field: "old_gold_value", Type: FieldMoney},
				{Header: "Exchange Rate (₹/g)", Field: "exchange_rate", Type: FieldMoney},
				{Header: "Exchange Difference (₹)", Field: "exchange_difference", Type: FieldMoney},
			},
			trailingFields,
		),
	})
}
