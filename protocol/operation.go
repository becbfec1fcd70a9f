package protocol

// Operation is the type tag carried by every command and its reply.
type Operation string

const (
	SetWifiEnabled     Operation = "setWifiEnabled"
	GetNetworks        Operation = "getNetworks"
	GetKnownNetworks   Operation = "getKnownNetworks"
	Associate          Operation = "associate"
	Forget             Operation = "forget"
	Wps                Operation = "wps"
	SetPowerSavingMode Operation = "setPowerSavingMode"
	SetStaticIpMode    Operation = "setStaticIpMode"
	SetHttpProxy       Operation = "setHttpProxy"
	ImportCert         Operation = "importCert"
	GetImportedCerts   Operation = "getImportedCerts"
	DeleteCert         Operation = "deleteCert"
)

// Operations lists every tag a server has to answer.
var Operations = []Operation{
	SetWifiEnabled,
	GetNetworks,
	GetKnownNetworks,
	Associate,
	Forget,
	Wps,
	SetPowerSavingMode,
	SetStaticIpMode,
	SetHttpProxy,
	ImportCert,
	GetImportedCerts,
	DeleteCert,
}

func (o Operation) Known() bool {
	for _, op := range Operations {
		if op == o {
			return true
		}
	}

	return false
}
